//go:build viture && cgo

package device

/*
#cgo LDFLAGS: -lviture_one_sdk -lusb-1.0 -lm -lpthread
#include <stdbool.h>
#include <stdint.h>
#include <stddef.h>

typedef void (*viture_imu_cb)(uint8_t *data, uint16_t len, uint32_t ts);
typedef void (*viture_mcu_cb)(uint16_t msgid, uint8_t *data, uint16_t len, uint32_t ts);

bool init(viture_imu_cb imu, viture_mcu_cb mcu);
void deinit(void);
int set_imu(bool on);

extern void goVitureIMU(uint8_t *data, uint16_t len, uint32_t ts);

static bool viture_start(void) {
	return init(goVitureIMU, NULL);
}
*/
import "C"

import "sync"

// The SDK accepts a plain C function pointer with no user data, so the Go
// handler has to live in a process-wide cell.
var imuHandler struct {
	mu sync.Mutex
	fn func(payload []byte)
}

type nativeSDK struct{}

// NativeSDK returns the cgo binding to libviture_one_sdk.
func NativeSDK() SDK {
	return nativeSDK{}
}

func (nativeSDK) Init(handler func(payload []byte)) bool {
	imuHandler.mu.Lock()
	imuHandler.fn = handler
	imuHandler.mu.Unlock()

	if !bool(C.viture_start()) {
		clearIMUHandler()
		return false
	}

	return true
}

func (nativeSDK) SetIMU(on bool) Result {
	return Result(C.set_imu(C.bool(on)))
}

func (nativeSDK) Deinit() {
	C.deinit()
	clearIMUHandler()
}

func clearIMUHandler() {
	imuHandler.mu.Lock()
	imuHandler.fn = nil
	imuHandler.mu.Unlock()
}
