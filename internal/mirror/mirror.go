package mirror

import (
	"encoding/json"
	"sync"
	"time"

	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/logger"
	"codeberg.org/mutker/viturectl/internal/orientation"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	DefaultTopic    = "viturectl/pose"
	DefaultClientID = "viturectl"

	queueSize       = 32
	connectTimeout  = 5 * time.Second
	publishTimeout  = time.Second
	disconnectQuiet = 250
)

type Config struct {
	Broker   string
	Topic    string
	ClientID string
}

// Pose is the JSON document published for every relayed frame.
type Pose struct {
	Frame uint32  `json:"frame"`
	Roll  float32 `json:"roll"`
	Pitch float32 `json:"pitch"`
	Yaw   float32 `json:"yaw"`
	Time  string  `json:"time"`
}

// Publisher mirrors calibrated poses to an MQTT topic. Publish never blocks
// the caller; poses that arrive while the queue is full are dropped.
type Publisher struct {
	client mqtt.Client
	topic  string
	queue  chan Pose
	quit   chan struct{}
	done   chan struct{}

	closeOnce sync.Once
}

// Connect dials the broker in cfg and starts publishing.
func Connect(cfg Config) (*Publisher, error) {
	errFactory := errors.New()

	if cfg.Broker == "" {
		return nil, errFactory.New(ErrNoBroker)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errFactory.Wrap(ErrConnectFailed, token.Error())
	}

	logger.Info().Str("broker", cfg.Broker).Str("topic", cfg.Topic).Msg("Connected to MQTT broker")

	return NewPublisher(client, cfg.Topic), nil
}

// NewPublisher starts publishing through an already connected client.
func NewPublisher(client mqtt.Client, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}

	p := &Publisher{
		client: client,
		topic:  topic,
		queue:  make(chan Pose, queueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.loop()

	return p
}

func (p *Publisher) Publish(frame uint32, s orientation.Sample) {
	pose := Pose{
		Frame: frame,
		Roll:  s.Roll,
		Pitch: s.Pitch,
		Yaw:   s.Yaw,
		Time:  time.Now().UTC().Format(time.RFC3339Nano),
	}

	select {
	case <-p.quit:
	case p.queue <- pose:
	default:
		logger.Debug().Uint32("frame", frame).Msg("Mirror queue full, dropping pose")
	}
}

func (p *Publisher) loop() {
	defer close(p.done)

	for {
		select {
		case <-p.quit:
			return
		case pose := <-p.queue:
			p.send(pose)
		}
	}
}

func (p *Publisher) send(pose Pose) {
	payload, err := json.Marshal(pose)
	if err != nil {
		logger.Debug().Err(err).Msg("Failed to encode pose")
		return
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		logger.Debug().Uint32("frame", pose.Frame).Msg("MQTT publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		logger.Debug().Err(err).Uint32("frame", pose.Frame).Msg("MQTT publish failed")
	}
}

// Close stops the publishing goroutine and disconnects the client.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.quit)
		<-p.done
		p.client.Disconnect(disconnectQuiet)
		logger.Debug().Msg("MQTT mirror closed")
	})

	return nil
}
