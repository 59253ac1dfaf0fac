package diag_test

import "reflect"

func reflectFuncPC(fn interface{}) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
