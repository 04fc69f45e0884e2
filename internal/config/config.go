// Package config defines the four role binaries' configuration structs
// and the viper/cobra wiring that populates them, generalizing the
// teacher's DefaultServerConfig()/loadConfig() (env-var driven,
// defaults-first) into flag+env binding per Seednode-partybox's cobra
// command pattern.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// HostServerConfig configures cmd/hostserver (spec.md §4.8-§4.12, §4.14).
type HostServerConfig struct {
	Bind                string
	Port                int
	EnableCORS          bool
	TicksPerSec         uint32
	MaxLobbySearch      uint16
	AckTimeout          time.Duration
	StartBuffer         time.Duration
	OngoingGameExpiry   time.Duration
	HubDisconnectExpiry time.Duration
	TokenSigningKey     string
	TokenTTL            time.Duration
	Verbose             bool
}

func defaultHostServerConfig() HostServerConfig {
	return HostServerConfig{
		Bind:                "0.0.0.0",
		Port:                8080,
		EnableCORS:          true,
		TicksPerSec:         20,
		MaxLobbySearch:      50,
		AckTimeout:          10 * time.Second,
		StartBuffer:         2 * time.Second,
		OngoingGameExpiry:   6 * time.Hour,
		HubDisconnectExpiry: time.Second,
		TokenSigningKey:     "",
		TokenTTL:            time.Minute,
	}
}

// GameHubServerConfig configures cmd/hubserver (spec.md §4.13).
type GameHubServerConfig struct {
	HostAddr      string
	MaxCapacity   int
	LaunchTimeout time.Duration
	KillGrace     time.Duration
	TicksPerSec   uint32
	InstanceBin   string
	Verbose       bool
}

func defaultGameHubServerConfig() GameHubServerConfig {
	return GameHubServerConfig{
		HostAddr:      "ws://localhost:8080/ws/hub",
		MaxCapacity:   8,
		LaunchTimeout: 15 * time.Second,
		KillGrace:     5 * time.Second,
		TicksPerSec:   20,
		InstanceBin:   "gameinstance",
	}
}

// GameFwConfig configures cmd/gameinstance (spec.md §4.5).
type GameFwConfig struct {
	TicksPerSec        uint32
	MaxInitTicks       uint32
	MaxEndTicks        uint32
	ReadinessThreshold float32
	Verbose            bool
}

func defaultGameFwConfig() GameFwConfig {
	return GameFwConfig{
		TicksPerSec:        20,
		MaxInitTicks:       200,
		MaxEndTicks:        40,
		ReadinessThreshold: 1.0,
	}
}

// ClientFwConfig configures cmd/clientinstance (spec.md §4.6, §6
// ClientInstanceConfig). ReconnectIntervalSecs is the client instance's
// single automatic retry loop (spec.md §7): on disconnect it redials the
// same game-instance address at this cadence rather than giving up. It
// does not request a new connect token from the host.
type ClientFwConfig struct {
	TicksPerSec           uint32
	ReconnectIntervalSecs uint32
	Verbose               bool
}

func defaultClientFwConfig() ClientFwConfig {
	return ClientFwConfig{
		TicksPerSec:           20,
		ReconnectIntervalSecs: 3,
	}
}

// bindFlags wires every viper-bound flag in fs under envPrefix, the way
// Seednode-partybox's newCmd does: SetEnvPrefix + AutomaticEnv, then
// VisitAll to bind each flag name to its env var and pre-seed the flag
// from env when the user didn't pass it explicitly.
func bindFlags(fs *pflag.FlagSet, envPrefix string) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var firstErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil && firstErr == nil {
			firstErr = err
		}
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
	return firstErr
}
