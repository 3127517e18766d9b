package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/leeineian/knott/home"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

const pidFile = ".bot.pid"

func main() {
	silent := flag.Bool("silent", false, "Disable all log output")
	skipReg := flag.Bool("skip-reg", false, "Skip command registration")
	flag.Parse()

	cfg, err := sys.LoadConfig()
	if err != nil {
		sys.LogFatal(sys.MsgConfigFailedToLoad, err)
	}

	sys.InitLogger(*silent || cfg.Silent, true)
	sys.LogInfo(sys.MsgBotStarting, sys.GetProjectName())

	f := acquirePIDFile()
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		_ = os.Remove(pidFile)
	}()

	if err := run(cfg, *silent, *skipReg); err != nil {
		sys.LogError("%v", err)
		return
	}
}

// acquirePIDFile takes an exclusive lock on the PID file, terminating any
// instance that still holds it, and writes the current PID.
func acquirePIDFile() *os.File {
	f, err := os.OpenFile(pidFile, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		sys.LogFatal(sys.MsgBotPIDWriteFail, err)
	}

	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if err != syscall.EWOULDBLOCK {
			sys.LogFatal(sys.MsgBotPIDLockFail, err)
		}

		var oldPid int
		_, _ = f.Seek(0, 0)
		if _, scanErr := fmt.Fscanf(f, "%d", &oldPid); scanErr != nil || oldPid == os.Getpid() {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		terminate(oldPid)
	}

	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	_, _ = fmt.Fprintf(f, "%d", os.Getpid())
	_ = f.Sync()
	return f
}

func terminate(pid int) {
	process, err := os.FindProcess(pid)
	if err != nil {
		time.Sleep(100 * time.Millisecond)
		return
	}

	sys.LogInfo(sys.MsgBotKillingOld, pid)
	if err := process.Signal(syscall.SIGTERM); err != nil {
		sys.LogWarn(sys.MsgBotKillFail, err)
	}

	// Wait up to 5 seconds
	for i := 0; i < 50; i++ {
		if err := process.Signal(syscall.Signal(0)); err != nil {
			sys.LogInfo(sys.MsgBotOldTerminated)
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	sys.LogWarn(sys.MsgBotKillForce, pid)
	_ = process.Signal(syscall.SIGKILL)
	time.Sleep(200 * time.Millisecond)
}

func run(cfg *sys.Config, silent bool, skipReg bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	sys.SetAppContext(ctx)

	if err := sys.InitDatabase(ctx, cfg.DatabasePath); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer sys.CloseDatabase()

	engine, err := proc.Setup(ctx, cfg, sys.DB)
	if err != nil {
		return fmt.Errorf(sys.MsgBotSetupFail, err)
	}
	defer engine.Close()

	client, err := sys.CreateClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create Discord client: %w", err)
	}
	defer client.Close(context.Background())

	if !skipReg {
		go func() {
			if err := sys.RegisterCommands(ctx, client, cfg.GuildID); err != nil {
				sys.LogError(sys.MsgBotRegisterFail, err)
			}
		}()
	}

	if err := client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	<-ctx.Done()
	if !silent {
		fmt.Println()
	}

	sys.ShutdownDaemons()
	if botUser, ok := client.Caches.SelfUser(); ok {
		sys.LogInfo(sys.MsgBotShutdown, botUser.Username)
	} else {
		sys.LogInfo(sys.MsgBotShutdown, sys.GetProjectName())
	}
	return nil
}
