package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/eventlog/internal/config"
	"github.com/telhawk-systems/eventlog/internal/event"
	"github.com/telhawk-systems/eventlog/internal/indexer"
)

type renderResult struct {
	Topic     string `json:"topic" yaml:"topic"`
	Index     string `json:"index" yaml:"index"`
	DocType   string `json:"doc_type" yaml:"doc_type"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
}

type renderJSON struct {
	renderResult
	Document json.RawMessage `json:"document"`
}

type renderYAML struct {
	renderResult `yaml:",inline"`
	Document     yaml.Node `yaml:"document"`
}

func newRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Show the document and index an event would be written to",
		Long: `Reads an event payload (a JSON object) from a file or stdin and prints the
document and the destination index without writing anything.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRender,
	}

	cmd.Flags().String("topic", "", "event topic, e.g. log/INFO")
	cmd.Flags().String("host", "", "host label (default: indexer.host)")
	cmd.Flags().String("index", "", "base index name (default: indexer.index)")
	cmd.Flags().StringP("output", "o", "document", "output format: document, json, yaml")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Indexer.Host = host
	}
	if index, _ := cmd.Flags().GetString("index"); index != "" {
		cfg.Indexer.Index = index
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	outputFormat, _ := cmd.Flags().GetString("output")
	switch outputFormat {
	case "document", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (supported: document, json, yaml)", outputFormat)
	}

	payload, err := readPayload(cmd, args)
	if err != nil {
		return err
	}

	topic, _ := cmd.Flags().GetString("topic")
	ev, err := event.Decode(topic, payload)
	if err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	// nothing is pushed; Render stops before the sender
	ix, err := indexer.New(indexer.Config{
		Host:         cfg.Indexer.Host,
		Index:        cfg.Indexer.Index,
		DocType:      cfg.Indexer.DocType,
		TimestampKey: cfg.Indexer.TimestampProperty,
		Location:     loc,
	}, indexer.SenderFunc(func(context.Context, indexer.IndexRequest) error { return nil }))
	if err != nil {
		return err
	}

	res, err := ix.Render(ev)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	base := renderResult{Topic: res.Topic, Index: res.Index, DocType: res.DocType, Timestamp: res.Timestamp}

	switch outputFormat {
	case "json":
		return writeJSON(out, renderJSON{renderResult: base, Document: json.RawMessage(res.Document)})
	case "yaml":
		var doc yaml.Node
		// a JSON document is valid YAML; decoding into a node keeps key order
		if err := yaml.Unmarshal([]byte(res.Document), &doc); err != nil {
			return fmt.Errorf("convert document: %w", err)
		}
		if len(doc.Content) == 0 {
			return fmt.Errorf("convert document: empty yaml")
		}
		node := doc.Content[0]
		blockStyle(node)
		return writeYAML(out, renderYAML{renderResult: base, Document: *node})
	default:
		info(cmd.ErrOrStderr(), "index: %s", res.Index)
		_, err := fmt.Fprintln(out, res.Document)
		return err
	}
}

func readPayload(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	return data, nil
}

// blockStyle switches collections from JSON flow style to block style and
// unquotes mapping keys. Values keep their quoting so "3" stays a string.
func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode:
		n.Style &^= yaml.FlowStyle
		for i := 0; i+1 < len(n.Content); i += 2 {
			n.Content[i].Style = 0
		}
	case yaml.SequenceNode:
		n.Style &^= yaml.FlowStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}
