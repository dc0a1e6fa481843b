package resource

import (
	"bounty-uploader/pkg/config"
	"bounty-uploader/pkg/kafka"
	"bounty-uploader/pkg/manager"
)

// KafkaResource opens the shared producer when the Kafka reporter is enabled.
type KafkaResource struct{}

type KafkaResourcePlugin struct{}

func (p *KafkaResourcePlugin) Name() string { return "kafka" }

func (p *KafkaResourcePlugin) MustCreateResource() manager.Resource { return &KafkaResource{} }

func (r *KafkaResource) MustOpen() {
	if cfg := config.GetGlobalConfig(); cfg == nil || !cfg.Reporter.Kafka {
		return
	}
	kafka.DefaultClient().MustOpen()
}

func (r *KafkaResource) Close() { kafka.DefaultClient().Close() }
