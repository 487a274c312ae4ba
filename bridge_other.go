//go:build !amd64 && !arm64

// bridge_other.go - 没有本机桥接的平台
//
// 在不支持的架构上提供空实现。

package jitmem

// CallNative 在不支持的架构上总是返回失败
func CallNative(funcPtr uintptr, args []int64) (int64, bool) {
	return 0, false
}

// RetCode 在不支持的架构上返回 nil
func RetCode() []byte {
	return nil
}
