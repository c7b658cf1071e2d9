package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"
)

type fakeNATS struct {
	subject string
	data    []byte
	headers map[string]string
	err     error
}

func (f *fakeNATS) Publish(subject string, data []byte, headers map[string]string) error {
	f.subject = subject
	f.data = data
	f.headers = headers
	return f.err
}

type fakeKafka struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeKafka) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeKafka) Close() error {
	f.closed = true
	return nil
}

func TestNewLookupEvent(t *testing.T) {
	a := NewLookupEvent("AB10 1AB", http.StatusOK, 57.14, -2.11)
	b := NewLookupEvent("AB10 1AB", http.StatusOK, 57.14, -2.11)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique ids, got %q and %q", a.ID, b.ID)
	}
	if a.At.IsZero() {
		t.Fatalf("expected timestamp")
	}
}

func TestNATSPublisher(t *testing.T) {
	client := &fakeNATS{}
	p := &NATSPublisher{Client: client, Subject: "postcode.lookups"}
	event := NewLookupEvent("AB10 1AB", http.StatusOK, 57.14, -2.11)

	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if client.subject != "postcode.lookups" || client.headers["Event-Id"] != event.ID {
		t.Fatalf("unexpected publish: %s %v", client.subject, client.headers)
	}
	var decoded LookupEvent
	if err := json.Unmarshal(client.data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Postcode != "AB10 1AB" || decoded.Status != http.StatusOK {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestNATSPublisherWrapsErrors(t *testing.T) {
	p := &NATSPublisher{Client: &fakeNATS{err: errors.New("no responders")}, Subject: "s"}
	err := p.Publish(context.Background(), NewLookupEvent("AB10 1AB", http.StatusNotFound, 0, 0))
	if !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, LookupEvent{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type bufferedConn struct {
	msgs []*nats.Msg
}

func (b *bufferedConn) PublishMsg(msg *nats.Msg) error {
	b.msgs = append(b.msgs, msg)
	return nil
}

func TestNATSConnPublishesWithoutRoundTrip(t *testing.T) {
	buf := &bufferedConn{}
	conn := natsConn{nc: buf}
	if err := conn.Publish("postcode.lookups", []byte(`{}`), map[string]string{"Event-Id": "e1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(buf.msgs) != 1 {
		t.Fatalf("expected one buffered message, got %d", len(buf.msgs))
	}
	msg := buf.msgs[0]
	if msg.Subject != "postcode.lookups" || msg.Header.Get("Event-Id") != "e1" {
		t.Fatalf("unexpected message: %s %v", msg.Subject, msg.Header)
	}
}

func TestDialNATSRequiresURL(t *testing.T) {
	if _, _, err := DialNATS("", "s"); !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}
}

func TestKafkaPublisher(t *testing.T) {
	writer := &fakeKafka{}
	p := &KafkaPublisher{Writer: writer}
	event := NewLookupEvent("M1 1AE", http.StatusOK, 53.48, -2.24)

	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(writer.msgs) != 1 || string(writer.msgs[0].Key) != "M1 1AE" {
		t.Fatalf("unexpected messages: %+v", writer.msgs)
	}
	if string(writer.msgs[0].Headers[0].Value) != event.ID {
		t.Fatalf("expected event id header")
	}
	if err := p.Close(); err != nil || !writer.closed {
		t.Fatalf("expected writer closed")
	}

	writer.err = errors.New("leader not available")
	if err := p.Publish(context.Background(), event); !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}
}

func TestNewKafkaRequiresBrokers(t *testing.T) {
	if _, err := NewKafka(nil, "topic"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFanoutJoinsErrors(t *testing.T) {
	ok := &fakeNATS{}
	failing := &fakeKafka{err: errors.New("down")}
	f := Fanout{LogPublisher{}, &NATSPublisher{Client: ok, Subject: "s"}, &KafkaPublisher{Writer: failing}}

	err := f.Publish(context.Background(), NewLookupEvent("AB10 1AB", http.StatusOK, 1, 2))
	if !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("expected joined publish error, got %v", err)
	}
	if ok.subject != "s" || len(failing.msgs) != 1 {
		t.Fatalf("expected every publisher to be called")
	}
}
