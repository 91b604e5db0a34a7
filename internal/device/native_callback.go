//go:build viture && cgo

package device

/*
#include <stdint.h>
*/
import "C"

import "unsafe"

//export goVitureIMU
func goVitureIMU(data *C.uint8_t, length C.uint16_t, _ C.uint32_t) {
	if data == nil || int(length) < PayloadSize {
		return
	}

	payload := C.GoBytes(unsafe.Pointer(data), C.int(length))

	imuHandler.mu.Lock()
	defer imuHandler.mu.Unlock()

	if imuHandler.fn != nil {
		imuHandler.fn(payload)
	}
}
