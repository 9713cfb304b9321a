// Command aisdecode decodes AIS sentences from UDP, TCP or a file and prints
// one JSON object per decoded message.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/saviobatista/ais-logger/internal/ais"
	"github.com/saviobatista/ais-logger/internal/capture"
	"github.com/saviobatista/ais-logger/internal/config"
	"github.com/saviobatista/ais-logger/internal/logging"
	"github.com/saviobatista/ais-logger/internal/nmea"
	"github.com/saviobatista/ais-logger/internal/parser"
)

type options struct {
	udp     string
	tcp     string
	file    string
	config  string
	types   string
	lenient bool
}

// record is the JSON line printed for each decoded message
type record struct {
	Source   string         `json:"source"`
	Received time.Time      `json:"received"`
	Own      bool           `json:"own,omitempty"` // VDO, the receiving station itself
	TagBlock *nmea.TagBlock `json:"tag_block,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
	Message  ais.Message    `json:"message"`
}

// summary counts the outcome of every line
type summary struct {
	Decoded     int
	Filtered    int
	Incomplete  int
	Unsupported int
	Failed      int
	Evicted     uint64 // Incomplete messages dropped by reassembly
}

// typeFilter selects the message types to print. A nil filter prints all.
type typeFilter map[uint8]bool

func (f typeFilter) allows(msgType uint8) bool {
	return f == nil || f[msgType]
}

// parseTypes reads a comma separated list of message types. Types without
// a decoder are rejected since they could never be printed.
func parseTypes(list string) (typeFilter, error) {
	if list == "" {
		return nil, nil
	}
	f := make(typeFilter)
	for _, field := range strings.Split(list, ",") {
		n, err := strconv.ParseUint(strings.TrimSpace(field), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid message type %q", field)
		}
		if !ais.Supported(uint8(n)) {
			return nil, fmt.Errorf("no decoder for message type %d", n)
		}
		f[uint8(n)] = true
	}
	return f, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		log.Printf("aisdecode failed: %v", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("aisdecode", flag.ContinueOnError)

	var opts options
	fs.StringVar(&opts.udp, "udp", "", "Address to listen for UDP messages")
	fs.StringVar(&opts.tcp, "tcp", "", "Address to connect for TCP messages")
	fs.StringVar(&opts.file, "file", "", "Path to the file to read AIS messages from, - for stdin")
	fs.StringVar(&opts.config, "config", "", "Path to a YAML configuration file")
	fs.StringVar(&opts.types, "types", "", "Comma separated message types to print, all when empty")
	fs.BoolVar(&opts.lenient, "lenient", false, "Accept sentences with checksum mismatches")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// sources resolves the inputs from flags, falling back to the config file
func (o options) sources(file *config.File) ([]string, error) {
	var out []string
	if o.udp != "" {
		out = append(out, "udp://"+o.udp)
	}
	if o.tcp != "" {
		out = append(out, "tcp://"+o.tcp)
	}
	if o.file != "" {
		out = append(out, "file://"+o.file)
	}
	if len(out) == 0 && file != nil {
		for _, src := range file.Sources {
			out = append(out, src.Type+"://"+src.Address)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no input given, use -udp, -tcp, -file or -config")
	}
	return out, nil
}

func run(opts options) error {
	var (
		file    *config.File
		logCfg  config.LogConfig
		decoder = config.DefaultDecoder()
		err     error
	)
	if opts.config != "" {
		if file, err = config.LoadFile(opts.config); err != nil {
			return err
		}
		if decoder, err = file.DecoderConfig(); err != nil {
			return err
		}
		logCfg = file.Logs
	} else if logCfg, err = config.LoadLogging(); err != nil {
		return err
	}
	if opts.lenient {
		decoder.Strict = false
	}

	// Decoded messages go to stdout, so logs go to stderr
	closer, err := logging.SetupTo("aisdecode", logCfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	inputs, err := opts.sources(file)
	if err != nil {
		return err
	}
	only, err := parseTypes(opts.types)
	if err != nil {
		return err
	}

	c := capture.New(inputs)
	if err := c.Start(); err != nil {
		return err
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		c.Stop()
	}()

	popts := parser.Options{
		Strict:     decoder.Strict,
		MaxPending: decoder.MaxPending,
		MaxAge:     decoder.MaxAge,
	}
	s := decodeStream(c.Messages(), popts, only, os.Stdout)
	log.Printf("Decoded %d messages, %d filtered, %d incomplete, %d unsupported, %d failed, %d fragments evicted",
		s.Decoded, s.Filtered, s.Incomplete, s.Unsupported, s.Failed, s.Evicted)
	return nil
}

// decodeStream decodes lines until the channel closes. Each source gets its
// own parser. Errors are logged and decoding continues.
func decodeStream(msgs <-chan capture.Message, opts parser.Options, only typeFilter, out io.Writer) summary {
	var s summary
	parsers := make(map[string]*parser.Parser)
	enc := json.NewEncoder(out)

	for msg := range msgs {
		p, ok := parsers[msg.Source]
		if !ok {
			p = parser.New(opts)
			parsers[msg.Source] = p
		}

		result, err := p.Parse(msg.Data, opts.Strict)
		if err != nil {
			log.Printf("Error decoding line: %v", err)
			s.Failed++
			continue
		}
		for _, w := range result.Warnings {
			log.Printf("Warning: %s: %s", w, msg.Data)
		}
		if result.Status == parser.Incomplete {
			s.Incomplete++
			continue
		}
		if result.Message == nil {
			s.Unsupported++
			continue
		}
		if !only.allows(result.Message.Base().MessageType) {
			s.Filtered++
			continue
		}

		if err := enc.Encode(record{
			Source:   msg.Source,
			Received: msg.Timestamp,
			Own:      result.Sentence.Own(),
			TagBlock: result.TagBlock,
			Warnings: result.Warnings,
			Message:  result.Message,
		}); err != nil {
			log.Printf("Failed to write message: %v", err)
			s.Failed++
			continue
		}
		s.Decoded++
	}

	for _, p := range parsers {
		s.Evicted += p.Evicted()
	}
	return s
}
