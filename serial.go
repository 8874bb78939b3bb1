// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import "code.hybscloud.com/atomix"

// Serial numbers sessions in creation order, process-wide. Pipe ends
// share the serial of their pair.
type Serial = uint32

var serials atomix.Uint32

func nextSerial() Serial {
	return serials.Add(1)
}
