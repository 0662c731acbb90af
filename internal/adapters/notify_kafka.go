package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaNotifier publishes escalation messages to the companion backend's
// escalation topic, where a dispatch worker fans them out as SMS/push/
// location shares. One record per recipient, keyed by run ID so all
// messages for a run land in one partition in order.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
}

// escalationRecord is the wire shape consumed by the dispatch worker.
type escalationRecord struct {
	RunID     string  `json:"run_id"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Primary   bool    `json:"primary"`
	Body      string  `json:"body"`
	Receipt   string  `json:"receipt,omitempty"`
	Device    string  `json:"device,omitempty"`
	Lat       float64 `json:"lat,omitempty"`
	Lon       float64 `json:"lon,omitempty"`
	HasCoords bool    `json:"has_coords"`
	SentAt    string  `json:"sent_at"`
}

// NewKafkaNotifier connects to the seed brokers and ensures the topic
// exists before first use.
func NewKafkaNotifier(ctx context.Context, seeds []string, topic string) (*KafkaNotifier, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		// Already-exists is fine; anything else is surfaced at startup
		// rather than during an emergency.
		if resp, lookupErr := adm.ListTopics(ctx, topic); lookupErr != nil || !resp.Has(topic) {
			client.Close()
			return nil, fmt.Errorf("ensure topic %q: %w", topic, err)
		}
	}

	return &KafkaNotifier{client: client, topic: topic}, nil
}

func (n *KafkaNotifier) Notify(ctx context.Context, recipients []Recipient, msg Message) error {
	for _, rcpt := range recipients {
		rec := escalationRecord{
			RunID:   msg.RunID,
			Name:    rcpt.Name,
			Phone:   rcpt.Phone,
			Primary: rcpt.Primary,
			Body:    msg.Body,
			Receipt: msg.Receipt,
			Device:  msg.Device,
			SentAt:  msg.SentAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
		if msg.Location != nil {
			rec.HasCoords = true
			rec.Lat = msg.Location.Lat
			rec.Lon = msg.Location.Lon
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("notify run %s: %w", msg.RunID, err)
		}
		record := &kgo.Record{
			Topic: n.topic,
			Key:   []byte(msg.RunID),
			Value: payload,
		}
		if err := n.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			return fmt.Errorf("notify run %s: produce: %w", msg.RunID, err)
		}
	}
	return nil
}

func (n *KafkaNotifier) Close() { n.client.Close() }
