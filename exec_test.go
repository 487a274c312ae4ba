// exec_test.go - 写入、刷新、执行的端到端测试

package jitmem

import (
	"runtime"
	"testing"
)

// movRet42 返回"返回 42"的机器码
func movRet42(t *testing.T) []byte {
	t.Helper()
	switch runtime.GOARCH {
	case "amd64":
		// mov eax, 42; ret
		return []byte{0xB8, 0x2A, 0x00, 0x00, 0x00, 0xC3}
	case "arm64":
		// mov x0, #42; ret
		return []byte{0x40, 0x05, 0x80, 0xD2, 0xC0, 0x03, 0x5F, 0xD6}
	default:
		t.Skipf("no native bridge on %s", runtime.GOARCH)
		return nil
	}
}

// TestExecuteRet 测试最小返回序列
func TestExecuteRet(t *testing.T) {
	code := RetCode()
	if code == nil {
		t.Skipf("no native bridge on %s", runtime.GOARCH)
	}

	m := New(nil)
	defer m.Shutdown()

	rw, rx := mustAllocate(t, m, len(code))
	CopyCode(rw, code)
	Flush(rx, len(code))

	// 执行应当直接返回，不发生故障
	if _, ok := CallNative(rx, nil); !ok {
		t.Fatal("CallNative reported failure")
	}
}

// TestExecuteWrittenCode 测试通过 RW 视图写入的代码在 RX 视图生效
func TestExecuteWrittenCode(t *testing.T) {
	code := movRet42(t)

	m := New(nil)
	defer m.Shutdown()

	rw, rx := mustAllocate(t, m, len(code))
	CopyCode(rw, code)
	Flush(rx, len(code))

	ret, ok := CallNative(rx, nil)
	if !ok {
		t.Fatal("CallNative reported failure")
	}
	if ret != 42 {
		t.Fatalf("executed code returned %d, want 42", ret)
	}
}

// TestExecuteAtOffset 测试内部偏移处的代码
func TestExecuteAtOffset(t *testing.T) {
	code := movRet42(t)

	m := New(nil)
	defer m.Shutdown()

	rw, rx := mustAllocate(t, m, 4096)
	const offset = 128
	CopyCode(rw+offset, code)
	Flush(rx+offset, len(code))

	// 入口地址由 RW 侧写入地址经注册表转换得到
	entry, ok := m.RWToRX(rw + offset)
	if !ok {
		t.Fatal("RWToRX(rw+offset) not found")
	}
	if entry != rx+offset {
		t.Fatalf("entry = %#x, want %#x", entry, rx+offset)
	}

	ret, ok := CallNative(entry, nil)
	if !ok {
		t.Fatal("CallNative reported failure")
	}
	if ret != 42 {
		t.Fatalf("executed code returned %d, want 42", ret)
	}
}

// TestPatchThroughWritableAlias 测试补丁路径：拿执行地址反查可写别名后改写
func TestPatchThroughWritableAlias(t *testing.T) {
	code := movRet42(t)

	m := New(nil)
	defer m.Shutdown()

	rw, rx := mustAllocate(t, m, len(code))
	CopyCode(rw, code)
	Flush(rx, len(code))

	if ret, _ := CallNative(rx, nil); ret != 42 {
		t.Fatalf("initial code returned %d, want 42", ret)
	}

	// 只持有 rx，通过注册表取回可写别名，改写立即数
	patch, ok := m.RXToRW(rx)
	if !ok {
		t.Fatal("RXToRW(rx) not found")
	}
	switch runtime.GOARCH {
	case "amd64":
		Bytes(patch, len(code))[1] = 7 // mov eax, 7
	case "arm64":
		// mov x0, #7
		copy(Bytes(patch, 4), []byte{0xE0, 0x00, 0x80, 0xD2})
	}
	Flush(rx, len(code))

	ret, ok := CallNative(rx, nil)
	if !ok {
		t.Fatal("CallNative reported failure after patch")
	}
	if ret != 7 {
		t.Fatalf("patched code returned %d, want 7", ret)
	}
}
