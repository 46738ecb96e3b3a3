// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package recovery

// restartMarkerLow and restartMarkerHigh bound the JPEG restart marker
// range D0..D7, which a stuffed 0xFF byte may legally be followed by
// mid-stream alongside the 0x00 escape.
const (
	restartMarkerLow  = 0xD0
	restartMarkerHigh = 0xD7
	zeroRatioLimit    = 0.9
)

// jpegClusterValid rejects a candidate cluster if it's predominantly
// zero-filled, or if any 0xFF byte is followed by something other than a
// stuffed escape or a restart marker.
func jpegClusterValid(cluster []byte) bool {
	if len(cluster) == 0 {
		return false
	}

	zero := 0
	for _, b := range cluster {
		if b == 0x00 {
			zero++
		}
	}
	if float64(zero)/float64(len(cluster)) > zeroRatioLimit {
		return false
	}

	for i := 0; i < len(cluster)-1; i++ {
		if cluster[i] != 0xFF {
			continue
		}
		next := cluster[i+1]
		if next == 0x00 {
			continue
		}
		if next >= restartMarkerLow && next <= restartMarkerHigh {
			continue
		}
		return false
	}
	return true
}
