package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jvn1228/rdum/internal/audio"
	"github.com/jvn1228/rdum/internal/config"
	"github.com/jvn1228/rdum/internal/midiconnector"
	"github.com/jvn1228/rdum/internal/oscbridge"
	"github.com/jvn1228/rdum/internal/rpc"
	"github.com/jvn1228/rdum/internal/seq"
	"github.com/jvn1228/rdum/internal/tui"
	"github.com/jvn1228/rdum/internal/web"
)

var (
	v       *viper.Viper
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          "rdum",
		Short:        "Sample-based step sequencer with MIDI clock out",
		RunE:         run,
		SilenceUsage: true,
	}
)

func init() {
	v = config.New()
	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "Optional YAML config file")
	flags.String("samples-dir", "one_shots", "Directory of one-shot samples (one level of kit subdirs allowed)")
	flags.String("patterns-dir", "patterns", "Directory of saved pattern files")
	flags.Int("tempo", 120, "Starting tempo in BPM")
	flags.Int("sample-rate", 44100, "Audio output sample rate")
	flags.String("midi-port", "", "MIDI output port name (empty disables MIDI)")
	flags.String("web-addr", ":8080", "Websocket listen address (empty disables)")
	flags.String("rpc-addr", "", "Binary request-reply listen address (empty disables)")
	flags.String("osc-addr", "", "OSC mirror target host:port (empty disables)")
	flags.Bool("tui", true, "Run the terminal UI")
	flags.String("debug", "", "If set, write debug logs to this file; if empty, logs are discarded while the TUI runs and go to stderr otherwise")
	v.BindPFlag("samples_dir", flags.Lookup("samples-dir"))
	v.BindPFlag("patterns_dir", flags.Lookup("patterns-dir"))
	v.BindPFlag("tempo", flags.Lookup("tempo"))
	v.BindPFlag("sample_rate", flags.Lookup("sample-rate"))
	v.BindPFlag("midi_port", flags.Lookup("midi-port"))
	v.BindPFlag("web_addr", flags.Lookup("web-addr"))
	v.BindPFlag("rpc_addr", flags.Lookup("rpc-addr"))
	v.BindPFlag("osc_addr", flags.Lookup("osc-addr"))
	v.BindPFlag("tui", flags.Lookup("tui"))
	v.BindPFlag("debug_log", flags.Lookup("debug"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Fatal: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}

	// Logging goes to the debug file if one is set. Otherwise it is discarded
	// while the TUI owns the terminal and left on stderr when running headless.
	if cfg.DebugLog != "" {
		f, err := tea.LogToFile(cfg.DebugLog, "debug")
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else if cfg.TUI {
		log.SetOutput(io.Discard)
	}

	engine, err := audio.NewEngine(cfg.SampleRate)
	if err != nil {
		return err
	}

	sctx := seq.NewContext(cfg.SamplesDir, cfg.PatternsDir, func() seq.Sink {
		return engine.NewSink()
	})
	ref := seq.NewRef(sctx)

	if cfg.MidiPort != "" {
		dev, err := midiconnector.New(cfg.MidiPort)
		if err != nil {
			log.Printf("MIDI port %q not found: %v", cfg.MidiPort, err)
		} else if err := dev.Open(); err != nil {
			log.Printf("MIDI open failed: %v", err)
		} else {
			log.Printf("MIDI connected to %s", dev.Name())
			ref.With(func(c *seq.Context) { c.Midi = dev })
		}
	}
	defer midiconnector.Close()

	ref.With(func(c *seq.Context) {
		if err := c.SetTempo(cfg.Tempo); err != nil {
			log.Printf("tempo %d rejected: %v", cfg.Tempo, err)
		}
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go seq.RunCommandLoop(runCtx, ref)

	sequencer := seq.NewSequencer(ref)
	seqDone := make(chan struct{})
	go func() {
		defer close(seqDone)
		sequencer.Run(runCtx)
	}()

	if cfg.WebAddr != "" {
		go func() {
			if err := web.NewController(cfg.WebAddr, ref).Run(runCtx); err != nil {
				log.Printf("websocket server error: %v", err)
			}
		}()
	}
	if cfg.RPCAddr != "" {
		go func() {
			if err := rpc.NewController(cfg.RPCAddr, ref).Run(runCtx); err != nil {
				log.Printf("rpc server error: %v", err)
			}
		}()
	}
	if cfg.OSCAddr != "" {
		bridge, err := oscbridge.New(cfg.OSCAddr, ref)
		if err != nil {
			log.Printf("osc bridge disabled: %v", err)
		} else {
			go bridge.Run(runCtx)
		}
	}

	if cfg.TUI {
		p := tea.NewProgram(tui.New(ref), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			log.Printf("Error: %v", err)
		}
		stop()
	} else {
		<-runCtx.Done()
	}

	// Let the pulse in flight finish so the final MIDI Stop goes out.
	<-seqDone
	return nil
}
