package dtmf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"sync"
)

// ExternalDetector runs an external DTMF decoder process (multimon-ng by
// default), streams raw S16LE PCM to its stdin, and collects the symbols it
// prints on stdout. Decoder output lines look like "DTMF: 5"; bare symbol
// lines are also accepted.
type ExternalDetector struct {
	command string
	args    []string

	cmd   *exec.Cmd
	stdin io.WriteCloser

	// readerDone is closed when the current incarnation's output reader
	// exits. stop waits on it so a dying reader cannot write runErr after
	// Reinitialize has cleared it.
	readerDone chan struct{}

	mu      sync.Mutex
	pending []byte
	runErr  error
}

// DefaultDecoderCommand is the decoder invocation used when none is
// configured. multimon-ng reads raw S16LE 22050Hz by default; "-t raw -"
// takes samples from stdin.
const DefaultDecoderCommand = "multimon-ng -q -a DTMF -t raw -"

// NewExternalDetector starts the decoder process described by command (a
// shell-style word list, first word the binary).
func NewExternalDetector(command string) (*ExternalDetector, error) {
	words := strings.Fields(command)
	if len(words) == 0 {
		return nil, fmt.Errorf("dtmf: empty decoder command")
	}
	d := &ExternalDetector{command: words[0], args: words[1:]}
	if err := d.start(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *ExternalDetector) start() error {
	cmd := exec.Command(d.command, d.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("dtmf: decoder stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("dtmf: decoder stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("dtmf: start decoder %s: %w", d.command, err)
	}

	d.cmd = cmd
	d.stdin = stdin

	done := make(chan struct{})
	d.readerDone = done
	go func() {
		defer close(done)
		d.readOutput(stdout)
	}()
	return nil
}

func (d *ExternalDetector) readOutput(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		for _, sym := range ParseDecoderLine(scanner.Text()) {
			d.mu.Lock()
			d.pending = append(d.pending, sym)
			d.mu.Unlock()
		}
	}
	if err := scanner.Err(); err != nil {
		d.mu.Lock()
		d.runErr = fmt.Errorf("dtmf: decoder output: %w", err)
		d.mu.Unlock()
	}
}

// ParseDecoderLine extracts DTMF symbols from one line of decoder output.
// Recognizes multimon-ng's "DTMF: X" form and raw symbol runs; anything
// else yields nothing.
func ParseDecoderLine(line string) []byte {
	line = strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(line, "DTMF:"); ok {
		line = strings.TrimSpace(rest)
	}
	var syms []byte
	for i := 0; i < len(line); i++ {
		if IsSymbol(line[i]) {
			syms = append(syms, line[i])
		}
	}
	return syms
}

// Feed writes the samples to the decoder and returns symbols recognized so
// far. Recognition is asynchronous, so symbols for these samples may arrive
// on a later Feed.
func (d *ExternalDetector) Feed(samples []int16) ([]byte, error) {
	d.mu.Lock()
	err := d.runErr
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	if _, err := d.stdin.Write(buf); err != nil {
		return nil, fmt.Errorf("dtmf: feed decoder: %w", err)
	}

	d.mu.Lock()
	syms := d.pending
	d.pending = nil
	d.mu.Unlock()
	return syms, nil
}

// Reinitialize restarts the decoder process, discarding its signal history.
func (d *ExternalDetector) Reinitialize() error {
	d.stop()

	d.mu.Lock()
	d.pending = nil
	d.runErr = nil
	d.mu.Unlock()

	if err := d.start(); err != nil {
		return fmt.Errorf("dtmf: reinitialize: %w", err)
	}
	log.Printf("dtmf: decoder reinitialized")
	return nil
}

// Close stops the decoder process.
func (d *ExternalDetector) Close() error {
	d.stop()
	return nil
}

func (d *ExternalDetector) stop() {
	if d.stdin != nil {
		d.stdin.Close()
	}
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
		d.cmd.Wait()
	}
	// Wait killed the decoder, so its reader sees EOF or a closed pipe
	// and exits. Waiting here keeps any error it records from landing
	// after the restart resets runErr.
	if d.readerDone != nil {
		<-d.readerDone
	}
}
