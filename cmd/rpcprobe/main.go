// Command rpcprobe is a small diagnostic client for the runtime's RPC
// channels: call one method, or watch broadcast topics.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/rpc"
)

func main() {
	reqAddr := flag.String("req", "tcp://127.0.0.1:2014", "Request channel address")
	pubAddr := flag.String("pub", "tcp://127.0.0.1:2015", "Broadcast channel address")
	method := flag.String("method", "", "Method to call (empty=watch only)")
	kwargsRaw := flag.String("kwargs", "{}", "Method kwargs as JSON object")
	watch := flag.String("watch", "", "Topic to watch ('all' for every topic)")
	timeout := flag.Duration("timeout", 3*time.Second, "Call timeout")
	flag.Parse()

	if *method == "" && *watch == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -method and/or -watch")
		os.Exit(2)
	}

	cli := rpc.NewClient(rpc.ClientConfig{
		ReqAddress: *reqAddr,
		SubAddress: *pubAddr,
		OnDisconnect: func() {
			logs.Error("server heartbeat lost")
		},
	})
	if *watch == "all" {
		cli.SubscribeAllTopics(printPacket)
	} else if *watch != "" {
		cli.SubscribeTopic(*watch, printPacket)
	}

	if err := cli.Connect(); err != nil {
		logs.Errorf("connect failed: %+v", err)
		os.Exit(1)
	}
	defer cli.Close()

	if *method != "" {
		var kwargs map[string]any
		if err := sonic.ConfigFastest.Unmarshal([]byte(*kwargsRaw), &kwargs); err != nil {
			logs.Errorf("bad kwargs: %+v", err)
			os.Exit(2)
		}
		value, err := cli.Call(*method, nil, kwargs, *timeout)
		if err != nil {
			logs.Errorf("call %s failed: %+v", *method, err)
			os.Exit(1)
		}
		printJSON(*method, value)
	}

	if *watch != "" {
		<-sys.Shutdown()
	}
}

func printPacket(pkt rpc.Packet) {
	printJSON(pkt.Topic, pkt.Data)
}

func printJSON(label string, v any) {
	body, err := sonic.ConfigFastest.Marshal(v)
	if err != nil {
		fmt.Printf("%s: %v\n", label, v)
		return
	}
	fmt.Printf("%s: %s\n", label, body)
}
