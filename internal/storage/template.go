package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/opensearch-project/opensearch-go/v2"
)

// TemplateConfig describes the index template installed for daily indices.
type TemplateConfig struct {
	BaseIndex         string
	TimestampProperty string
	ShardCount        int
	ReplicaCount      int
	RefreshInterval   string
}

// TemplateInstaller installs the mapping used by every <base>-* index.
// It does not create, roll over or delete indices.
type TemplateInstaller struct {
	client *opensearch.Client
	config TemplateConfig
}

// NewTemplateInstaller creates an installer for cfg.
func NewTemplateInstaller(client *opensearch.Client, cfg TemplateConfig) *TemplateInstaller {
	return &TemplateInstaller{client: client, config: cfg}
}

// Name returns the template name.
func (m *TemplateInstaller) Name() string {
	return m.config.BaseIndex + "-template"
}

// Template returns the index template body.
func (m *TemplateInstaller) Template() map[string]interface{} {
	return map[string]interface{}{
		"index_patterns": []string{m.config.BaseIndex + "-*"},
		"template": map[string]interface{}{
			"settings": map[string]interface{}{
				"number_of_shards":   m.config.ShardCount,
				"number_of_replicas": m.config.ReplicaCount,
				"refresh_interval":   m.config.RefreshInterval,
			},
			"mappings": m.mappings(),
		},
		"priority": 100,
	}
}

func (m *TemplateInstaller) mappings() map[string]interface{} {
	return map[string]interface{}{
		"dynamic_templates": []map[string]interface{}{
			{
				"property_strings": map[string]interface{}{
					"path_match":         "properties.*",
					"match_mapping_type": "string",
					"mapping": map[string]interface{}{
						"type": "text",
						"fields": map[string]interface{}{
							"keyword": map[string]interface{}{
								"type":         "keyword",
								"ignore_above": 256,
							},
						},
					},
				},
			},
		},
		"properties": map[string]interface{}{
			"host": map[string]interface{}{
				"type": "keyword",
			},
			"topic": map[string]interface{}{
				"type": "keyword",
			},
			"properties": map[string]interface{}{
				"properties": map[string]interface{}{
					m.config.TimestampProperty: map[string]interface{}{
						"type":   "date",
						"format": "strict_date_optional_time||epoch_millis",
					},
				},
			},
		},
	}
}

// Install creates or replaces the template.
func (m *TemplateInstaller) Install(ctx context.Context) error {
	body, err := json.Marshal(m.Template())
	if err != nil {
		return err
	}

	res, err := m.client.Indices.PutIndexTemplate(
		m.Name(),
		bytes.NewReader(body),
		m.client.Indices.PutIndexTemplate.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to put index template %s: %w", m.Name(), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return fmt.Errorf("failed to create index template: %s - %s", res.Status(), string(bodyBytes))
	}

	return nil
}
