package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

type messageList []string

func (l *messageList) String() string { return strings.Join(*l, ",") }

func (l *messageList) Set(s string) error {
	*l = append(*l, s)
	return nil
}

func main() {
	var opts runOptions
	var emit messageList
	flag.StringVar(&opts.configPath, "config", "", "path to sctl config (defaults apply when empty)")
	flag.StringVar(&opts.device, "device", "", "serial device or capture file (overrides config)")
	flag.StringVar(&opts.metricsAddr, "metrics", "", "listen address for /metrics (overrides config)")
	flag.BoolVar(&opts.strict, "strict", false, "report unknown tags instead of passing them through")
	flag.Var(&emit, "emit", "name=value message to send; repeat to batch several into one frame")
	flag.Parse()
	opts.emit = append(emit, flag.Args()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "sctlcat: %v\n", err)
		os.Exit(1)
	}
}
