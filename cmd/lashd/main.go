// lashd is the daemon control binary: start/stop/status subcommands
// plus a hidden --worker mode used only by internal/daemon's re-exec
// of this same binary to spawn a worker process.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/lash/internal/daemon"
)

var (
	app = kingpin.New("lashd", "lash persistent execution daemon")

	startCmd = app.Command("start", "start the daemon as a background process")
	stopCmd  = app.Command("stop", "signal the running daemon and wait for shutdown")
	statusCmd = app.Command("status", "print running/stopped and the socket path")

	worker = app.Flag("worker", "internal: run as a pre-forked worker process").Hidden().Bool()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *worker {
		if err := daemon.ServeWorker(); err != nil {
			log.Fatalf("lashd worker: %v", err)
		}
		return
	}

	switch command {
	case startCmd.FullCommand():
		os.Exit(handleStart())
	case stopCmd.FullCommand():
		os.Exit(handleStop())
	case statusCmd.FullCommand():
		os.Exit(handleStatus())
	}
}

// handleStart is idempotent: if a daemon is already listening on the
// configured socket it exits 0 immediately instead of erroring.
func handleStart() int {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		log.Printf("lashd: load config: %v", err)
		return 1
	}
	if daemon.IsRunning(cfg) {
		fmt.Println("lashd already running")
		return 0
	}

	srv, err := daemon.New(cfg)
	if err != nil {
		log.Printf("lashd: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("lashd stopped gracefully")
			return 0
		}
		log.Printf("lashd: %v", err)
		return 1
	}
	return 0
}

func handleStop() int {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		log.Printf("lashd: load config: %v", err)
		return 1
	}
	pid, ok := daemon.ReadPid(cfg)
	if !ok {
		fmt.Println("lashd not running")
		return 0
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		fmt.Println("lashd not running")
		return 0
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		fmt.Println("lashd not running")
		return 0
	}
	for i := 0; i < 50; i++ {
		if !daemon.IsRunning(cfg) {
			return 0
		}
		time.Sleep(100 * time.Millisecond)
	}
	_ = proc.Kill()
	_ = os.Remove(cfg.SocketPath)
	_ = os.Remove(cfg.PidPath())
	return 0
}

func handleStatus() int {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		log.Printf("lashd: load config: %v", err)
		return 1
	}
	if daemon.IsRunning(cfg) {
		fmt.Printf("running, socket %s\n", cfg.SocketPath)
		return 0
	}
	fmt.Printf("stopped, socket %s\n", cfg.SocketPath)
	return 1
}
