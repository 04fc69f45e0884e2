package hubproto

import (
	"context"
	"fmt"
	"time"

	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/hubcache"
	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/supervisor"
)

// HostSender delivers a message to the (single) host this hub is
// connected to.
type HostSender interface {
	SendToHost(codec.Tagged)
}

// Config bundles a hub's caches and collaborators.
type Config struct {
	Pending      *hubcache.PendingGamesCache
	Running      *hubcache.RunningGamesCache
	Capacity     *hubcache.CapacityTracker
	LaunchPacks  hubcache.GameLaunchPackSource
	ToHost       HostSender
	InstanceBin  string
	InstanceArgs func(pack hubcache.GameLaunchPack) []string
	KillGrace    time.Duration
}

// Driver implements the hub side of spec.md §4.13/§4.14: it turns a
// host-issued StartGame into a pending game, resolves the launch pack,
// spawns a supervised game instance, and relays GameOver/abort reports
// and periodic capacity back to the host.
type Driver struct {
	cfg Config
}

func New(cfg Config) *Driver {
	return &Driver{cfg: cfg}
}

// HandleStartGame records a host-issued StartGame as pending.
func (d *Driver) HandleStartGame(msg StartGame, now time.Time) error {
	return d.cfg.Pending.Insert(msg.Request, now)
}

// HandleHostAbort aborts a game whether it is still pending or already
// running.
func (d *Driver) HandleHostAbort(ctx context.Context, msg HostAbort) {
	if _, ok := d.cfg.Pending.Extract(msg.GameID); ok {
		d.cfg.ToHost.SendToHost(HubAbort{GameID: msg.GameID, Reason: "aborted before launch"})
		return
	}
	if rg, ok := d.cfg.Running.Get(msg.GameID); ok {
		rg.Supervisor.Abort(hubcache.InstanceCommand{Abort: true})
	}
}

// ResolveLaunchPack asks the configured GameLaunchPackSource for a launch
// pack for a pending game, and on success spawns its instance.
func (d *Driver) ResolveLaunchPack(ctx context.Context, gameID ids.GameId) error {
	pending, ok := d.cfg.Pending.Get(gameID)
	if !ok {
		return fmt.Errorf("hubproto: no pending game %v", gameID)
	}

	pack, err := d.cfg.LaunchPacks.RequestLaunchPack(pending.Request)
	if err != nil {
		d.cfg.Pending.Extract(gameID)
		d.cfg.ToHost.SendToHost(HubAbort{GameID: gameID, Reason: err.Error()})
		return err
	}

	d.cfg.Pending.Extract(gameID)

	rg := &hubcache.RunningGame{GameID: gameID}
	sup, err := supervisor.Spawn[hubcache.InstanceCommand, hubcache.InstanceReport](
		ctx, d.cfg.InstanceBin, d.cfg.InstanceArgs(pack),
		func(r hubcache.InstanceReport) *bool {
			if r.GameOver != nil {
				rg.Result = r.GameOver
				clean := true
				return &clean
			}
			if r.Aborted {
				clean := false
				return &clean
			}
			return nil
		},
		d.cfg.KillGrace, nil,
	)
	if err != nil {
		d.cfg.ToHost.SendToHost(HubAbort{GameID: gameID, Reason: err.Error()})
		return err
	}

	rg.Supervisor = sup
	d.cfg.Running.Insert(rg)

	connectMetas := make([]ConnectMeta, 0, len(pack.Members))
	startInfos := make([]StartInfo, 0, len(pack.Members))
	for _, m := range pack.Members {
		connectMetas = append(connectMetas, ConnectMeta{GameID: gameID, Opaque: []byte(pack.ListenAddr)})
		startInfos = append(startInfos, StartInfo{UserID: m.UserID, ClientID: m.ClientID})
	}
	d.cfg.ToHost.SendToHost(GameStart{GameID: gameID, Request: pending.Request, ConnectMetas: connectMetas, StartInfos: startInfos})

	return nil
}

// DrainExpiredPending reports every pending game that timed out waiting
// for its launch pack as an abort to host.
func (d *Driver) DrainExpiredPending(now time.Time) {
	for _, p := range d.cfg.Pending.DrainExpired(now) {
		d.cfg.ToHost.SendToHost(HubAbort{GameID: p.Request.GameID, Reason: "launch pack timed out"})
	}
}

// PollCompletions drains RunningGamesCache.Completions, forwarding each
// finished game's result to host and retiring it.
func (d *Driver) PollCompletions() {
	for {
		select {
		case completion := <-d.cfg.Running.Completions:
			rg, _ := d.cfg.Running.Remove(completion.GameID)
			if completion.Status.Clean && rg != nil && rg.Result != nil {
				d.cfg.ToHost.SendToHost(GameOver{GameID: completion.GameID, OpaqueBytes: rg.Result.OpaqueBytes})
			} else {
				d.cfg.ToHost.SendToHost(HubAbort{GameID: completion.GameID, Reason: "instance terminated uncleanly"})
			}
		default:
			return
		}
	}
}

// Tick recomputes and, if changed, reports current capacity to host.
func (d *Driver) Tick() {
	capacity, shouldSend := d.cfg.Capacity.Tick(d.cfg.Pending.Len(), d.cfg.Running.Len())
	if shouldSend {
		d.cfg.ToHost.SendToHost(Capacity{CurrentCapacity: capacity})
	}
}

// OnReconnect must be called whenever the host connection is reestablished.
func (d *Driver) OnReconnect() {
	d.cfg.Capacity.OnReconnect()
}
