package sys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// safeGo runs a function in a new goroutine with panic recovery
func safeGo(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError(MsgLoaderPanicRecovered, r)
				fmt.Printf("%s\n", debug.Stack())
			}
		}()
		f()
	}()
}

// --- Global State & Setup ---

var AppContext context.Context = context.Background()
var StartupTime = time.Now()
var daemonsOnce sync.Once

var commands = []discord.ApplicationCommandCreate{}
var commandHandlers = map[string]func(event *events.ApplicationCommandInteractionCreate){}
var messageHandlers []func(event *events.GuildMessageCreate)
var onClientReadyCallbacks []func(ctx context.Context, client *bot.Client)

func SetAppContext(ctx context.Context) {
	AppContext = ctx
}

// CreateClient creates and configures a disgo client
func CreateClient(cfg *Config) (*bot.Client, error) {
	return disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMembers,
			),
			gateway.WithPresenceOpts(
				gateway.WithPlayingActivity("/rank"),
				gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagMembers, cache.FlagRoles, cache.FlagChannels),
		),
		bot.WithEventListenerFunc(onApplicationCommandInteraction),
		bot.WithEventListenerFunc(onGuildMessageCreate),
		bot.WithEventListenerFunc(onReady),
		bot.WithLogger(slog.Default()),
		bot.WithRestClientConfigOpts(
			rest.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		),
	)
}

// --- Command & Handler Registration ---

func RegisterCommand(cmd discord.ApplicationCommandCreate, handler func(event *events.ApplicationCommandInteractionCreate)) {
	commands = append(commands, cmd)
	switch c := cmd.(type) {
	case discord.SlashCommandCreate:
		commandHandlers[c.CommandName()] = handler
	case discord.UserCommandCreate:
		commandHandlers[c.CommandName()] = handler
	}
}

// RegisterMessageHandler subscribes to every guild message the bot can see.
func RegisterMessageHandler(handler func(event *events.GuildMessageCreate)) {
	messageHandlers = append(messageHandlers, handler)
}

func OnClientReady(cb func(ctx context.Context, client *bot.Client)) {
	onClientReadyCallbacks = append(onClientReadyCallbacks, cb)
}

// Commands returns the registered command definitions.
func Commands() []discord.ApplicationCommandCreate {
	return commands
}

// --- Command Syncing Logic ---

// calculateCommandHash generates a SHA256 hash of the commands slice
func calculateCommandHash(cmds []discord.ApplicationCommandCreate) string {
	data, err := json.Marshal(cmds)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// RegisterCommands pushes the command set to Discord, globally when guildIDStr
// is empty and to that guild otherwise. Unchanged sets are skipped.
func RegisterCommands(ctx context.Context, client *bot.Client, guildIDStr string) error {
	isProduction := guildIDStr == ""
	currentMode := "guild"
	if isProduction {
		currentMode = "global"
	}
	LogInfo(MsgLoaderSyncCommands, strings.ToUpper(currentMode))

	currentHash := calculateCommandHash(commands)
	lastHash, _ := DB.GetBotConfig(ctx, "last_cmd_hash")
	lastMode, _ := DB.GetBotConfig(ctx, "last_reg_mode")
	lastGuildID, _ := DB.GetBotConfig(ctx, "last_guild_id")

	upToDate := currentHash != "" && currentHash == lastHash && currentMode == lastMode && lastGuildID == guildIDStr
	if upToDate {
		LogInfo(MsgLoaderUpToDate, currentHash[:8])
		return nil
	}

	if isProduction {
		created, err := client.Rest.SetGlobalCommands(client.ApplicationID, commands, rest.WithCtx(ctx))
		if err != nil {
			return fmt.Errorf(MsgLoaderProdFail, err)
		}
		for _, cmd := range created {
			LogInfo(MsgLoaderProdRegistered, cmd.Name())
		}
	} else {
		guildID, err := snowflake.Parse(guildIDStr)
		if err != nil {
			return fmt.Errorf("invalid GUILD_ID: %w", err)
		}
		created, err := client.Rest.SetGuildCommands(client.ApplicationID, guildID, commands, rest.WithCtx(ctx))
		if err != nil {
			LogWarn(MsgLoaderDevFail, err)
		} else {
			for _, cmd := range created {
				LogInfo(MsgLoaderDevRegistered, cmd.Name())
			}
		}

		if lastMode != currentMode {
			if cmds, err := client.Rest.GetGlobalCommands(client.ApplicationID, false, rest.WithCtx(ctx)); err == nil && len(cmds) > 0 {
				LogInfo(MsgLoaderDevGlobalClear)
				if _, err := client.Rest.SetGlobalCommands(client.ApplicationID, []discord.ApplicationCommandCreate{}, rest.WithCtx(ctx)); err != nil {
					LogWarn(MsgLoaderDevGlobalClearFail, err)
				}
			}
		}
	}

	// Commands left in the guild used by the previous run.
	if lastGuildID != "" && lastGuildID != guildIDStr {
		if oldID, err := snowflake.Parse(lastGuildID); err == nil {
			if cmds, err := client.Rest.GetGuildCommands(client.ApplicationID, oldID, false, rest.WithCtx(ctx)); err == nil && len(cmds) > 0 {
				LogInfo(MsgLoaderCleanup, lastGuildID)
				_, _ = client.Rest.SetGuildCommands(client.ApplicationID, oldID, []discord.ApplicationCommandCreate{}, rest.WithCtx(ctx))
			}
		}
	}

	_ = DB.SetBotConfig(ctx, "last_reg_mode", currentMode)
	_ = DB.SetBotConfig(ctx, "last_guild_id", guildIDStr)
	if currentHash != "" {
		_ = DB.SetBotConfig(ctx, "last_cmd_hash", currentHash)
	}
	return nil
}

// --- Event Handlers ---

func onReady(event *events.Ready) {
	client := event.Client()
	botUser := event.User

	LogInfo(MsgBotReady, botUser.Username, botUser.ID.String(), os.Getpid(), time.Since(StartupTime).Milliseconds())

	TriggerClientReady(AppContext, client)
	StartDaemons(AppContext)
}

func TriggerClientReady(ctx context.Context, client *bot.Client) {
	for _, cb := range onClientReadyCallbacks {
		cb(ctx, client)
	}
}

func onApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	if h, ok := commandHandlers[event.Data.CommandName()]; ok {
		safeGo(func() { h(event) })
	}
}

func onGuildMessageCreate(event *events.GuildMessageCreate) {
	for _, h := range messageHandlers {
		safeGo(func() { h(event) })
	}
}

// --- Daemon System ---

type daemonEntry struct {
	starter func(ctx context.Context) (bool, func(), func())
	logger  func(format string, v ...any)
}

var registeredDaemons []daemonEntry
var activeShutdownHooks []func()
var activeShutdownMu sync.Mutex

// RegisterDaemon registers a background daemon. starter reports whether the
// daemon should run and returns its loop and an optional shutdown hook.
func RegisterDaemon(logger func(format string, v ...any), starter func(ctx context.Context) (bool, func(), func())) {
	registeredDaemons = append(registeredDaemons, daemonEntry{starter: starter, logger: logger})
}

// StartDaemons starts all registered daemons once.
func StartDaemons(ctx context.Context) {
	daemonsOnce.Do(func() {
		type activeDaemon struct {
			entry daemonEntry
			run   func()
		}
		var active []activeDaemon

		for _, daemon := range registeredDaemons {
			if ok, run, shutdown := daemon.starter(ctx); ok && run != nil {
				if shutdown != nil {
					activeShutdownMu.Lock()
					activeShutdownHooks = append(activeShutdownHooks, shutdown)
					activeShutdownMu.Unlock()
				}
				active = append(active, activeDaemon{daemon, run})
			}
		}

		for _, ad := range active {
			ad.entry.logger(MsgDaemonStarting)
		}
		for _, ad := range active {
			safeGo(ad.run)
		}
	})
}

// ShutdownDaemons runs every shutdown hook and waits for them.
func ShutdownDaemons() {
	activeShutdownMu.Lock()
	defer activeShutdownMu.Unlock()

	var wg sync.WaitGroup
	for _, shutdown := range activeShutdownHooks {
		wg.Add(1)
		go func(s func()) {
			defer wg.Done()
			s()
		}(shutdown)
	}
	wg.Wait()
	activeShutdownHooks = nil
}
