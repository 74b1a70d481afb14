// Command dtmf-gate turns decoded DTMF symbols into access-control
// decisions: it accumulates digits into candidate codes, matches them
// against a configured code table under two timing deadlines, publishes
// every decision to MQTT, pulses mapped GPIO relays on valid codes, and
// appends decisions to a SQLite audit journal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/dtmf-gate/internal/audio"
	"github.com/sweeney/dtmf-gate/internal/config"
	"github.com/sweeney/dtmf-gate/internal/dtmf"
	"github.com/sweeney/dtmf-gate/internal/entry"
	"github.com/sweeney/dtmf-gate/internal/journal"
	"github.com/sweeney/dtmf-gate/internal/pincode"
	"github.com/sweeney/dtmf-gate/internal/relay"
	"github.com/sweeney/dtmf-gate/internal/sink"
	"github.com/sweeney/dtmf-gate/internal/status"
	"github.com/sweeney/dtmf-gate/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	codes := flag.String("codes", "", "PIN code table file (overrides config)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	interDigit := flag.Duration("inter-digit-timeout", 0, "Timeout between digits (overrides config)")
	entryTimeout := flag.Duration("entry-timeout", 0, "Timeout for complete entry (overrides config)")
	tick := flag.Duration("tick", 0, "Timeout check cadence (overrides config)")
	heartbeat := flag.Duration("heartbeat", -1, "Heartbeat interval, 0 disables (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides config)")
	pipe := flag.String("pipe", "", "Named pipe delivering S16LE mono PCM (overrides config; default stdin)")
	passThrough := flag.Bool("pass-through", false, "Forward input audio to stdout instead of silence")
	printTable := flag.Bool("print-table", false, "Print the loaded code table and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	// Flags that were given on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "codes":
			cfg.CodesFile = *codes
		case "broker":
			cfg.Broker = *broker
		case "inter-digit-timeout":
			cfg.InterDigitTimeoutMs = int(interDigit.Milliseconds())
		case "entry-timeout":
			cfg.EntryTimeoutMs = int(entryTimeout.Milliseconds())
		case "tick":
			cfg.TickMs = int(tick.Milliseconds())
		case "heartbeat":
			cfg.HeartbeatMs = int(heartbeat.Milliseconds())
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "pipe":
			cfg.Audio.Pipe = *pipe
		case "pass-through":
			cfg.Audio.PassThrough = *passThrough
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: config: %v", err)
	}

	if err := run(cfg, *printTable); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printTable bool) error {
	// A missing or unreadable table is not fatal: the daemon starts with
	// an empty table and SIGHUP can bring one in later.
	table, err := pincode.LoadFile(cfg.CodesFile)
	if err != nil {
		log.Printf("code table unavailable, starting empty: %v", err)
		table = nil
	}

	if printTable {
		for _, e := range table.Entries() {
			fmt.Printf("%s=%s\n", e.Code, e.Label)
		}
		return nil
	}

	session := uuid.NewString()
	startTime := time.Now()

	// The tone detector is the one collaborator the session cannot run
	// without.
	detector, err := dtmf.NewExternalDetector(cfg.Audio.Decoder)
	if err != nil {
		return fmt.Errorf("init detector: %w", err)
	}
	defer detector.Close()

	var source audio.Source
	if cfg.Audio.Pipe != "" {
		source, err = audio.NewPipeSource(cfg.Audio.Pipe, cfg.Audio.ChunkSamples)
		if err != nil {
			return fmt.Errorf("open audio source: %w", err)
		}
	} else {
		source = audio.NewStreamSource(os.Stdin, cfg.Audio.ChunkSamples)
	}
	defer source.Close()

	publisher, err := sink.NewRealPublisher(cfg.Broker, cfg.ClientID)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	var actuator relay.Actuator = relay.Nop{}
	if len(cfg.Relays.Pins) > 0 {
		act, err := relay.NewRealActuator(cfg.Relays.Pins, time.Duration(cfg.Relays.PulseMs)*time.Millisecond)
		if err != nil {
			// Decisions still publish without hardware attached.
			log.Printf("relay unavailable, continuing without: %v", err)
		} else {
			actuator = act
		}
	}
	defer actuator.Close()

	var jrnl *journal.Journal
	if cfg.Journal.Path != "" {
		jrnl, err = journal.Open(context.Background(), cfg.Journal.Path)
		if err != nil {
			log.Printf("journal unavailable, continuing without: %v", err)
		} else {
			defer jrnl.Close()
		}
	}

	tracker := status.NewTracker(session, startTime, status.Config{
		TickMs:       int64(cfg.TickMs),
		InterDigitMs: int64(cfg.InterDigitTimeoutMs),
		EntryMs:      int64(cfg.EntryTimeoutMs),
		HeartbeatMs:  int64(cfg.HeartbeatMs),
		Broker:       cfg.Broker,
		HTTPAddr:     cfg.HTTPAddr,
		CodesFile:    cfg.CodesFile,
		PassThrough:  cfg.Audio.PassThrough,
	})
	tracker.Update(entry.StateIdle, 0, table.Len(), entry.Counts{})

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := sink.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Session:    session,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: session=%s codes=%d inter-digit=%dms entry=%dms tick=%dms broker=%s",
		session, table.Len(), cfg.InterDigitTimeoutMs, cfg.EntryTimeoutMs, cfg.TickMs, cfg.Broker)

	ticker := time.NewTicker(time.Duration(cfg.TickMs) * time.Millisecond)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// In pipeline mode (stdin source) stdout carries the downstream audio:
	// the original samples when pass-through is on, silence of equal length
	// when off. A named-pipe source has no downstream.
	var audioOut io.Writer
	if cfg.Audio.Pipe == "" {
		audioOut = os.Stdout
	}
	chunks := make(chan audio.Chunk, 4)
	go readChunks(source, audioOut, cfg.Audio.PassThrough, chunks)

	machine := entry.NewMachine(table,
		time.Duration(cfg.InterDigitTimeoutMs)*time.Millisecond,
		time.Duration(cfg.EntryTimeoutMs)*time.Millisecond,
		startTime)

	heartbeat := time.Duration(cfg.HeartbeatMs) * time.Millisecond
	return runLoop(machine, detector, publisher, publisher, actuator, jrnl, tracker,
		session, cfg.CodesFile, heartbeat, time.Now, chunks, ticker.C, sigCh)
}

// readChunks moves audio from the source into the event loop's channel and
// drives the downstream output path: with out set, each chunk is forwarded
// as the original samples (pass-through) or an equal length of silence.
func readChunks(source audio.Source, out io.Writer, passThrough bool, chunks chan<- audio.Chunk) {
	defer close(chunks)
	for {
		chunk, err := source.ReadChunk()
		if err != nil {
			if err != io.EOF {
				log.Printf("audio read error: %v", err)
			}
			return
		}
		if out != nil {
			writeSamples(out, chunk.Samples, passThrough)
		}
		chunks <- chunk
	}
}

func writeSamples(w io.Writer, samples []int16, passThrough bool) {
	buf := make([]byte, len(samples)*2)
	if passThrough {
		for i, s := range samples {
			buf[i*2] = byte(s)
			buf[i*2+1] = byte(s >> 8)
		}
	}
	if _, err := w.Write(buf); err != nil {
		log.Printf("audio output write error: %v", err)
	}
}

// runLoop is the single owner of the entry machine: audio chunks, timeout
// ticks, reloads, and shutdown all arrive through one select, so digit and
// timeout transitions are linearized.
func runLoop(machine *entry.Machine, detector dtmf.Detector, publisher sink.Publisher,
	mqttStatus sink.ConnectionStatus, actuator relay.Actuator, jrnl *journal.Journal,
	tracker *status.Tracker, session, codesFile string, heartbeat time.Duration,
	now func() time.Time, chunks <-chan audio.Chunk, tick <-chan time.Time, sig <-chan os.Signal) error {

	lastHeartbeat := now()

	publishOutcome := func(out entry.Outcome) {
		if out.Valid {
			log.Printf("decision: pin=%s function=%s valid=true", out.Code, out.Label)
		} else {
			log.Printf("decision: pin=%s valid=false", out.Code)
		}
		if err := publisher.Publish(out); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
		if jrnl != nil {
			if err := jrnl.Append(context.Background(), session, out); err != nil {
				log.Printf("journal error: %v", err)
			}
		}
		if out.Valid {
			if err := actuator.Pulse(out.Label); err != nil {
				log.Printf("relay error: %v", err)
			}
		}
	}

	updateTracker := func() {
		tracker.Update(machine.State(), machine.BufferLen(), machine.TableLen(), machine.CountsSnapshot())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			if s == syscall.SIGHUP {
				// Reload the table; failure keeps the active one.
				table, err := pincode.LoadFile(codesFile)
				if err != nil {
					log.Printf("reload failed, keeping current table: %v", err)
					continue
				}
				machine.SetTable(table)
				tracker.AddReload()
				updateTracker()
				event := sink.SystemEvent{Timestamp: now(), Event: "RELOAD", Session: session}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish reload event: %v", err)
				}
				log.Printf("code table reloaded: %d codes", table.Len())
				continue
			}

			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := sink.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Session:   session,
				Retained:  true,
			}
			updateTracker()
			snap := tracker.Snapshot()
			event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case chunk, ok := <-chunks:
			if !ok {
				// Stream ended; tear down without reporting
				// in-flight entries.
				log.Printf("audio stream ended, shutting down")
				return nil
			}
			t := now()

			if chunk.Discont {
				log.Printf("stream discontinuity, resetting entry state")
				machine.OnDiscontinuity(t)
				if err := detector.Reinitialize(); err != nil {
					return fmt.Errorf("reinitialize detector: %w", err)
				}
			}

			syms, err := detector.Feed(chunk.Samples)
			if err != nil {
				return fmt.Errorf("detector: %w", err)
			}
			for _, sym := range syms {
				if out := machine.OnDigit(sym, t); out != nil {
					publishOutcome(*out)
				}
			}
			updateTracker()

		case <-tick:
			t := now()
			if out := machine.OnTimeoutCheck(t); out != nil {
				publishOutcome(*out)
			}
			updateTracker()

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				snap := tracker.Snapshot()
				hbEvent := sink.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					Session:    session,
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}
