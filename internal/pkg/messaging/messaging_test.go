package messaging

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/v2/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestNewFromDriver(t *testing.T) {
	t.Run("EmptyIsDiscard", func(t *testing.T) {

		// Act
		p, err := NewFromDriver(context.Background(), "", FactoryOptions{})

		// Assert
		if err != nil {
			t.Fatalf("NewFromDriver() error = %v", err)
		}
		if _, ok := p.(*Discard); !ok {
			t.Fatalf("NewFromDriver() = %T, want *Discard", p)
		}
	})

	t.Run("Unknown", func(t *testing.T) {

		// Act
		_, err := NewFromDriver(context.Background(), "rabbit", FactoryOptions{})

		// Assert
		if !errors.Is(err, ErrUnknownDriver) {
			t.Fatalf("NewFromDriver() error = %v, want ErrUnknownDriver", err)
		}
	})

	t.Run("MissingSettings", func(t *testing.T) {
		tests := map[string]error{
			DriverNATS:         ErrNATSURLRequired,
			DriverNSQ:          ErrNSQAddrRequired,
			DriverKafka:        ErrKafkaBrokersRequired,
			DriverGooglePubSub: ErrPubSubProjectIDRequired,
		}
		for driver, want := range tests {
			_, err := NewFromDriver(context.Background(), driver, FactoryOptions{})
			if !errors.Is(err, want) {
				t.Fatalf("%s: error = %v, want %v", driver, err, want)
			}
		}
	})

	t.Run("LazyDrivers", func(t *testing.T) {

		// Arrange
		opts := FactoryOptions{
			NSQ:   NSQConfig{Addr: "127.0.0.1:4150"},
			Kafka: KafkaConfig{Brokers: []string{"127.0.0.1:9092"}},
		}

		for _, driver := range []string{DriverNSQ, " Kafka "} {
			// Act
			p, err := NewFromDriver(context.Background(), driver, opts)

			// Assert
			if err != nil {
				t.Fatalf("%s: error = %v", driver, err)
			}
			if err := p.Close(); err != nil {
				t.Fatalf("%s: Close() error = %v", driver, err)
			}
			if _, err := p.Publish(context.Background(), "t", Message{}); !errors.Is(err, ErrClosed) {
				t.Fatalf("%s: Publish after Close error = %v, want ErrClosed", driver, err)
			}
		}
	})
}

func TestDiscard(t *testing.T) {
	t.Run("CountsAndDrops", func(t *testing.T) {

		// Arrange
		d := NewDiscard()

		// Act
		r, err := d.Publish(context.Background(), "campaign.dispatched", Message{Body: []byte("{}")})

		// Assert
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if r.Topic != "campaign.dispatched" || d.Published() != 1 {
			t.Fatalf("receipt = %+v, published = %d", r, d.Published())
		}
	})

	t.Run("Validation", func(t *testing.T) {

		// Arrange
		d := NewDiscard()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// Act & Assert
		if _, err := d.Publish(context.Background(), "", Message{}); !errors.Is(err, ErrTopicRequired) {
			t.Fatalf("empty topic error = %v", err)
		}
		if _, err := d.Publish(ctx, "t", Message{}); !errors.Is(err, context.Canceled) {
			t.Fatalf("canceled ctx error = %v", err)
		}
		if d.Published() != 0 {
			t.Fatalf("Published() = %d, want 0", d.Published())
		}
	})
}

func TestPubSub(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	if _, err := srv.GServer.CreateTopic(ctx, &pubsubpb.Topic{Name: "projects/mailbite/topics/campaign"}); err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}

	p, err := NewPubSub(ctx, PubSubConfig{
		ProjectID: "mailbite",
		ClientOptions: []option.ClientOption{
			option.WithEndpoint(srv.Addr),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		},
	})
	if err != nil {
		t.Fatalf("NewPubSub() error = %v", err)
	}

	t.Run("Publish", func(t *testing.T) {

		// Act
		r, err := p.Publish(ctx, "campaign", Message{
			Body:    []byte(`{"delivered":2}`),
			Headers: map[string]string{"event": "campaign.dispatched"},
		})

		// Assert
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if r.ID == "" {
			t.Fatalf("Publish() receipt has no id")
		}

		msgs := srv.Messages()
		if len(msgs) != 1 {
			t.Fatalf("server has %d messages, want 1", len(msgs))
		}
		if string(msgs[0].Data) != `{"delivered":2}` || msgs[0].Attributes["event"] != "campaign.dispatched" {
			t.Fatalf("stored message = %+v", msgs[0])
		}
	})

	t.Run("Closed", func(t *testing.T) {

		// Act
		if err := p.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		_, err := p.Publish(ctx, "campaign", Message{Body: []byte("x")})

		// Assert
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("Publish() after Close error = %v, want ErrClosed", err)
		}
	})
}
