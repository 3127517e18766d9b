package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	infoColor     = color.New(color.FgHiBlack)
	warnColor     = color.New(color.FgHiYellow)
	errorColor    = color.New(color.FgHiRed)
	fatalColor    = color.New(color.FgHiRed, color.Bold)
	debugColor    = color.New(color.FgBlue)
	databaseColor = color.New(color.FgHiBlack)
	levelingColor = color.New(color.FgHiGreen)
	rolesColor    = color.New(color.FgHiMagenta)
	commandColor  = color.New(color.FgHiCyan)
	metricsColor  = color.New(color.FgHiBlue)

	IsSilent  = false
	LogToFile = false

	Logger *slog.Logger

	logFile *os.File
	logMu   sync.Mutex

	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

const levelFatal = slog.LevelError + 4

func init() {
	InitLogger(false, false)
}

// InitLogger replaces the default slog logger with a BotLogHandler.
func InitLogger(silent bool, saveToFile bool) {
	logMu.Lock()
	defer logMu.Unlock()

	IsSilent = silent
	LogToFile = saveToFile
	level := slog.LevelInfo
	if strings.ToLower(os.Getenv("DEBUG")) == "true" {
		level = slog.LevelDebug
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var file io.Writer
	if LogToFile {
		logName := GetProjectName() + ".log"
		if exePath, err := os.Executable(); err == nil {
			logName = filepath.Base(exePath) + ".log"
		}
		f, err := os.OpenFile(logName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", logName, err)
		} else {
			logFile = f
			file = f
		}
	}

	color.NoColor = false

	handler := NewBotLogHandler(os.Stdout, &BotLogHandlerOptions{
		Silent: IsSilent,
		Level:  level,
		File:   file,
	})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func SetSilentMode(silent bool) {
	InitLogger(silent, LogToFile)
}

func LogInfo(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func LogWarn(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

func LogError(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

func LogDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

func LogFatal(format string, v ...any) {
	slog.Log(context.Background(), levelFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

func LogDatabase(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "database"))
}

func LogLeveling(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "leveling"))
}

func LogRoles(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "roles"))
}

func LogCommand(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "command"))
}

func LogMetrics(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "metrics"))
}

// --- Handler ---

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
	// File receives the same lines with ANSI sequences removed.
	File io.Writer
}

type BotLogHandler struct {
	w     io.Writer
	opts  *BotLogHandlerOptions
	mu    *sync.Mutex
	attrs []slog.Attr
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &BotLogHandler{w: w, opts: opts, mu: &sync.Mutex{}}
}

func (h *BotLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.opts.Silent {
		return false
	}
	return level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(_ context.Context, r slog.Record) error {
	if h.opts.Silent {
		return nil
	}

	levelStr, levelColor := levelStyle(r.Level)

	component := ""
	find := func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return false
		}
		return true
	}
	for _, a := range h.attrs {
		if !find(a) {
			break
		}
	}
	if component == "" {
		r.Attrs(find)
	}

	// 15:04:05 [WARN] [COMPONENT] message
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var line strings.Builder
	line.WriteString(ts.Format("15:04:05"))
	if component != "" {
		if levelStr != "INFO" {
			line.WriteString(" " + levelColor.Sprintf("[%s]", levelStr))
		}
		line.WriteString(" " + componentColor(component).Sprintf("[%s] %s", component, r.Message))
	} else {
		line.WriteString(" " + levelColor.Sprintf("[%s] %s", levelStr, r.Message))
	}
	line.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := io.WriteString(h.w, line.String()); err != nil {
		return err
	}
	if h.opts.File != nil {
		_, _ = io.WriteString(h.opts.File, ansiPattern.ReplaceAllString(line.String(), ""))
	}
	return nil
}

func (h *BotLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *BotLogHandler) WithGroup(string) slog.Handler { return h }

func levelStyle(l slog.Level) (string, *color.Color) {
	switch {
	case l >= levelFatal:
		return "FATAL", fatalColor
	case l >= slog.LevelError:
		return "ERROR", errorColor
	case l >= slog.LevelWarn:
		return "WARN", warnColor
	case l >= slog.LevelInfo:
		return "INFO", infoColor
	default:
		return "DEBUG", debugColor
	}
}

func componentColor(name string) *color.Color {
	switch name {
	case "DATABASE":
		return databaseColor
	case "LEVELING":
		return levelingColor
	case "ROLES":
		return rolesColor
	case "COMMAND":
		return commandColor
	case "METRICS":
		return metricsColor
	default:
		return color.New(color.FgCyan)
	}
}

// @sys
const (
	MsgConfigFailedToLoad = "Failed to load config: %v"
	MsgConfigMissingToken = "DISCORD_TOKEN is not set in .env file"
	MsgConfigInvalidValue = "invalid %s %q: %w"

	MsgDatabaseInitSuccess  = "Database initialized successfully (%s)"
	MsgDatabaseTableError   = "Failed to create table: %w"
	MsgDatabaseMigrateError = "Failed to migrate database: %w"
	MsgDatabaseSeeded       = "Seeded %d achievements"

	MsgLoaderSyncCommands       = "Syncing commands (%s mode)..."
	MsgLoaderUpToDate           = "Commands are up to date. (Hash: %s)"
	MsgLoaderProdFail           = "Failed to register global commands: %w"
	MsgLoaderProdRegistered     = "Registered global command: %s"
	MsgLoaderDevFail            = "Failed to register guild commands: %v"
	MsgLoaderDevRegistered      = "Registered guild command: %s"
	MsgLoaderDevGlobalClear     = "Clearing global commands left over from production mode..."
	MsgLoaderDevGlobalClearFail = "Failed to clear global commands: %v"
	MsgLoaderCleanup            = "Clearing commands from previous guild %s"
	MsgLoaderPanicRecovered     = "Recovered from panic: %v"
	MsgDaemonStarting           = "Starting..."

	MsgBotStarting      = "Starting %s..."
	MsgBotReady         = "%s is ready! (ID: %s) (PID: %d) (%dms)"
	MsgBotShutdown      = "Shutting down %s..."
	MsgBotKillingOld    = "Killing running instance... (PID: %d)"
	MsgBotKillFail      = "Failed to kill old instance: %v"
	MsgBotOldTerminated = "Old instance terminated."
	MsgBotPIDWriteFail  = "Failed to write PID file: %v"
	MsgBotPIDLockFail   = "Failed to lock PID file: %v"
	MsgBotKillForce     = "Old process %d did not exit, sending SIGKILL"
	MsgBotSetupFail     = "failed to set up leveling: %w"
	MsgBotRegisterFail  = "Command registration failed: %v"
)

// @leveling
const (
	MsgLevelingMessageFail   = "Failed to process message from %s in %s: %v"
	MsgLevelingLevelUp       = "%s reached level %d in %s"
	MsgLevelingAchievement   = "%s earned %q in %s (+%d XP)"
	MsgLevelingAwardFail     = "Failed to award achievements to %s in %s: %v"
	MsgLevelingAnnounceFail  = "Failed to announce in channel %s: %v"
	MsgLevelingSweep         = "Swept %d expired cooldown entries (%d tracked)"
	MsgLevelingCatalogLoaded = "Loaded %d achievements from %s"
	MsgLevelingCatalogFail   = "Failed to load achievements file %s: %v"
	MsgLevelingCacheFail     = "Leaderboard cache unavailable: %v"
	MsgLevelingCacheEnabled  = "Leaderboard cache enabled (TTL %s)"
)

// @roles
const (
	MsgRolesGranted    = "Granted role %s to %s in %s"
	MsgRolesGrantFail  = "Failed to grant role %s to %s in %s: %v"
	MsgRolesSyncDone   = "Synced %d members in %s (%d roles granted, %d failures)"
	MsgRolesMemberFail = "Failed to read roles of %s in %s: %v"
)

// @command
const (
	MsgCommandRespondFail = "Failed to respond to /%s: %v"
	MsgCommandStoreFail   = "/%s failed: %v"
	MsgCommandUnknownSub  = "Unknown /%s subcommand: %s"

	ErrCommandGeneric      = "Something went wrong while talking to the database. Please try again later."
	ErrCommandGuildOnly    = "This command can only be used in a server."
	ErrCommandNoData       = "No data found yet. Send some messages to start earning XP!"
	ErrCommandNoDataFor    = "%s hasn't earned any XP yet."
	ErrCommandScopeOff     = "The %s leaderboard is disabled on this bot."
	ErrCommandMultiplier   = "The XP multiplier must be between 0.1 and 5.0."
	ErrCommandOwnerOnly    = "Only the bot owner can change XP multipliers on hosted instances. Self-hosters can set IS_SELF_HOSTED=true."
	ErrCommandPrefix       = "The prefix can be at most 16 characters."
	ErrCommandLevel        = "The level must be at least 1."
	ErrCommandRoleManaged  = "That role is managed by an integration and cannot be granted."
	ErrCommandRolesOff     = "Rank roles are disabled on this bot."
	ErrCommandNoRankRole   = "No rank role is configured for level %d."
	ErrCommandNoRankRoles  = "No rank roles configured. Add one with `/rankrole add`."
	ErrCommandEmptyBoard   = "Nobody is on this leaderboard yet."
	MsgCommandSyncStarted  = "Syncing rank roles for every tracked member. This may take a while."
	MsgCommandSettingSaved = "Setting updated."
)

// @metrics
const (
	MsgMetricsListening  = "Serving keep-alive and /metrics on %s"
	MsgMetricsServerFail = "Metrics server stopped: %v"
)
