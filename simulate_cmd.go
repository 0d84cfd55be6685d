package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/conductorapp/conductor/audio"
	"github.com/conductorapp/conductor/cue"
	"github.com/conductorapp/conductor/event"
	"github.com/conductorapp/conductor/internal/config"
	"github.com/conductorapp/conductor/session"
)

var (
	simStep    time.Duration
	simPacks   string
	simAudible bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <token|url|file>",
	Short: "Run an event headlessly and print every cue it would fire",
	Long: "Runs the event through a real coordination session against a synthetic\n" +
		"clock, printing each haptic and audio effect with its virtual timestamp.\n" +
		"Useful for verifying a script before anyone stands in a plaza with it.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := loadEventArg(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		var library cue.Library
		if simPacks != "" {
			store, err := cue.NewDirStore(simPacks, log.Default())
			if err != nil {
				return err
			}
			library = store
		}

		clock := session.NewFakeClock(ev.StartTime)
		printer := &printEffects{start: ev.StartTime, clock: clock}

		var (
			effects session.Effects = printer
			player  audio.Player    = audio.NewMockPlayer()
			speaker audio.Speaker   = audio.NewMockSpeaker()
		)
		if simAudible {
			// Play through the real device. No platform speech here, so
			// announcements come out as beep patterns.
			oto, err := audio.NewOtoPlayer(audio.OtoConfig{SampleRate: cfg.Audio.SampleRate, Channels: 1})
			if err != nil {
				return err
			}
			defer oto.Close()
			cues := audio.NewCuePlayer(oto, nil, log.Default())
			device := audio.NewDeviceEffects(cues, oto, cfg.Audio.SampleRate, cfg.Audio.BeepVolume, log.Default())
			effects = fanoutEffects{printer, device}
			player, speaker = oto, nil
		}

		opts := cfg.SessionOptions()
		opts.Manual = true
		sess := session.New(ev, session.Deps{
			Clock:   clock,
			Effects: effects,
			Library: library,
			Player:  player,
			Speaker: speaker,
		}, opts)

		if err := sess.StartPractice(); err != nil {
			return err
		}
		for sess.Mode() == session.ModePractice {
			sess.Tick()
			clock.Advance(simStep)
			if simAudible {
				// Hold virtual time to real time so the beeps land when
				// the printed stamps say they do.
				time.Sleep(simStep)
			}
		}

		snap := sess.Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n",
			subtleStyle.Render(fmt.Sprintf("completed: %d effects across %d actions",
				printer.count, snap.FiredCount)))
		return nil
	},
}

// printEffects is the simulator's effect sink: every dispatch becomes a
// stamped line on stdout.
type printEffects struct {
	start time.Time
	clock *session.FakeClock
	count int
}

func (p *printEffects) stamp() string {
	return fmt.Sprintf("[%8s]", "+"+p.clock.Now().Sub(p.start).Round(10*time.Millisecond).String())
}

// PlayCue implements session.Effects.
func (p *printEffects) PlayCue(a event.Action, c cue.Category, res cue.Resolution) {
	p.count++
	switch c.Kind {
	case cue.KindNotice:
		fmt.Printf("%s notice    %s (%s)\n", p.stamp(), a.Action, res.Tier)
	case cue.KindCountdown:
		fmt.Printf("%s countdown %d (%s)\n", p.stamp(), c.Count, res.Tier)
	default:
		fmt.Printf("%s trigger   %s (%s)\n", p.stamp(), actionLabel(a), res.Tier)
	}
}

// PlayBeep implements session.Effects.
func (p *printEffects) PlayBeep(a event.Action, kind audio.BeepKind) {
	p.count++
	fmt.Printf("%s beep      %s %s\n", p.stamp(), kind, a.ID)
}

// Haptic implements session.Effects.
func (p *printEffects) Haptic(a event.Action, pattern event.HapticPattern) {
	p.count++
	fmt.Printf("%s haptic    %s %s\n", p.stamp(), pattern, a.ID)
}

// AudioDegraded implements session.Effects.
func (p *printEffects) AudioDegraded(mode audio.FallbackMode) {
	fmt.Printf("%s audio degraded to %s\n", p.stamp(), mode)
}

// fanoutEffects forwards every effect to each sink in order.
type fanoutEffects []session.Effects

func (f fanoutEffects) PlayCue(a event.Action, c cue.Category, res cue.Resolution) {
	for _, e := range f {
		e.PlayCue(a, c, res)
	}
}

func (f fanoutEffects) PlayBeep(a event.Action, kind audio.BeepKind) {
	for _, e := range f {
		e.PlayBeep(a, kind)
	}
}

func (f fanoutEffects) Haptic(a event.Action, pattern event.HapticPattern) {
	for _, e := range f {
		e.Haptic(a, pattern)
	}
}

func (f fanoutEffects) AudioDegraded(mode audio.FallbackMode) {
	for _, e := range f {
		e.AudioDegraded(mode)
	}
}

func init() {
	simulateCmd.Flags().DurationVar(&simStep, "step", 100*time.Millisecond, "virtual time per tick")
	simulateCmd.Flags().StringVar(&simPacks, "packs", "", "resource pack directory")
	simulateCmd.Flags().BoolVar(&simAudible, "audible", false, "play cues through the audio device in real time")
}
