// jitmemprobe - jitmem 双映射自检工具
//
// 用法:
//   jitmemprobe [options]
//
// 分配一块双映射区域，通过 RW 视图写入本架构的返回序列，
// 刷新指令缓存后从 RX 视图执行，输出探测报告。
// 用于验证目标系统（特别是强制 W^X 的系统）上双映射可用。

package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/segmentio/encoding/json"
	log "github.com/sirupsen/logrus"

	"github.com/tangzhangming/jitmem"
)

// 版本信息
const (
	Version = "1.0.0"
	Name    = "jitmemprobe"
)

// 命令行选项
var (
	helpFlag    = flag.Bool("help", false, "显示帮助信息")
	versionFlag = flag.Bool("version", false, "显示版本信息")
	verboseFlag = flag.Bool("verbose", false, "详细输出 (debug 日志)")
	jsonFlag    = flag.Bool("json", false, "以 JSON 格式输出报告")
	sizeFlag    = flag.Int("size", 100, "请求分配的字节数")
	configFlag  = flag.String("config", "", "配置文件路径 (jitmem.toml)")
)

// probeReport 探测报告
type probeReport struct {
	Platform    string       `json:"platform"`
	PageSize    int          `json:"page_size"`
	Requested   int          `json:"requested_size"`
	Mapped      int64        `json:"mapped_size"`
	RWBase      string       `json:"rw_base"`
	RXBase      string       `json:"rx_base"`
	Translation bool         `json:"translation_ok"`
	Executed    bool         `json:"executed"`
	Stats       jitmem.Stats `json:"stats"`
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *helpFlag {
		usage()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Printf("%s version %s\n", Name, Version)
		os.Exit(0)
	}
	if *verboseFlag {
		log.SetLevel(log.DebugLevel)
	}

	cfg := jitmem.DefaultConfig()
	if *configFlag != "" {
		loaded, err := jitmem.LoadConfig(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", Name, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	report, err := probe(cfg, *sizeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", Name, err)
		os.Exit(1)
	}

	if *jsonFlag {
		out, err := json.Marshal(report)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: marshal report: %v\n", Name, err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	} else {
		printReport(report)
	}

	if !report.Executed {
		os.Exit(1)
	}
}

// probe 执行一轮分配-写入-刷新-执行探测
func probe(cfg *jitmem.Config, size int) (*probeReport, error) {
	m := jitmem.New(cfg)
	defer m.Shutdown()

	if err := m.Init(); err != nil {
		return nil, err
	}

	report := &probeReport{
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		PageSize:  m.PageSize(),
		Requested: size,
	}

	rw, rx, err := m.Allocate(size)
	if err != nil {
		return nil, err
	}
	defer m.Free(rw, rx, size)

	report.RWBase = fmt.Sprintf("%#x", rw)
	report.RXBase = fmt.Sprintf("%#x", rx)
	report.Mapped = m.Stats().OpenBytes

	// 双向转换自检
	toRX, okF := m.RWToRX(rw + 1)
	toRW, okB := m.RXToRW(rx + 1)
	report.Translation = okF && okB && toRX == rx+1 && toRW == rw+1

	// 写入返回序列并执行
	code := jitmem.RetCode()
	if code == nil {
		// 没有本机桥接的架构只验证映射和转换
		report.Stats = m.Stats()
		return report, nil
	}
	jitmem.CopyCode(rw, code)
	jitmem.Flush(rx, len(code))
	_, report.Executed = jitmem.CallNative(rx, nil)

	report.Stats = m.Stats()
	return report, nil
}

// printReport 输出文本报告
func printReport(r *probeReport) {
	status := "FAILED"
	if r.Executed {
		status = "OK"
	}
	fmt.Printf("platform:     %s\n", r.Platform)
	fmt.Printf("page size:    %d\n", r.PageSize)
	fmt.Printf("requested:    %d bytes\n", r.Requested)
	fmt.Printf("mapped:       %d bytes\n", r.Mapped)
	fmt.Printf("rw view:      %s\n", r.RWBase)
	fmt.Printf("rx view:      %s\n", r.RXBase)
	fmt.Printf("translation:  %v\n", r.Translation)
	fmt.Printf("execute:      %s\n", status)
}

// usage 显示帮助信息
func usage() {
	fmt.Printf("%s - 双映射可执行内存自检工具\n\n", Name)
	fmt.Println("用法:")
	fmt.Printf("  %s [options]\n\n", Name)
	fmt.Println("选项:")
	flag.PrintDefaults()
}
