package broker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/topicsink/internal/domain/model"
	"github.com/okian/topicsink/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type doneToken struct {
	err      error
	complete bool
}

func (t *doneToken) Wait() bool                       { return t.complete }
func (t *doneToken) WaitTimeout(_ time.Duration) bool { return t.complete }
func (t *doneToken) Error() error                     { return t.err }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.complete {
		close(ch)
	}
	return ch
}

// fakeClient implements the parts of mqtt.Client the subscriber uses.
type fakeClient struct {
	mqtt.Client

	connectToken   *doneToken
	subscribeToken *doneToken
	subscribed     map[string]byte
	disconnected   bool
	open           bool
}

func (c *fakeClient) Connect() mqtt.Token    { return c.connectToken }
func (c *fakeClient) Disconnect(_ uint)      { c.disconnected = true; c.open = false }
func (c *fakeClient) IsConnectionOpen() bool { return c.open }
func (c *fakeClient) SubscribeMultiple(filters map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	c.subscribed = filters
	return c.subscribeToken
}

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

type recordingDispatcher struct {
	mu      sync.Mutex
	got     []model.InboundMessage
	ctxErrs []error
	fail    error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, m model.InboundMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, m)
	d.ctxErrs = append(d.ctxErrs, ctx.Err())
	return d.fail
}

func TestSubscriber(t *testing.T) {
	Convey("Given a subscriber with a fake paho client", t, func() {
		_ = logger.Init()

		client := &fakeClient{
			connectToken:   &doneToken{complete: true},
			subscribeToken: &doneToken{complete: true},
			open:           true,
		}
		var seenOpts *mqtt.ClientOptions
		factory := func(o *mqtt.ClientOptions) mqtt.Client {
			seenOpts = o
			return client
		}
		d := &recordingDispatcher{}

		s := NewSubscriber(d,
			WithBroker("tcp://broker:1883"),
			WithTopics("sensors/#", " ", "plant/+/temp"),
			WithQoS(1),
			WithCredentials("user", "secret"),
			WithConnectTimeout(time.Second),
			WithClientFactory(factory),
		)

		Convey("When starting", func() {
			err := s.Start(context.Background())

			Convey("Then it should connect with the configured options", func() {
				So(err, ShouldBeNil)
				So(seenOpts, ShouldNotBeNil)
				So(seenOpts.Servers[0].String(), ShouldEqual, "tcp://broker:1883")
				So(seenOpts.ClientID, ShouldEqual, s.ClientID())
				So(seenOpts.Username, ShouldEqual, "user")
				So(seenOpts.AutoReconnect, ShouldBeTrue)
				So(s.IsConnected(), ShouldBeTrue)
			})

			Convey("And the connect handler subscribes to every filter", func() {
				s.onConnect(client)
				So(client.subscribed, ShouldResemble, map[string]byte{"sensors/#": 1, "plant/+/temp": 1})
			})

			Convey("And starting again is refused", func() {
				So(errors.Is(s.Start(context.Background()), ErrAlreadyStarted), ShouldBeTrue)
			})

			Convey("And stopping disconnects", func() {
				s.Stop(context.Background())
				So(client.disconnected, ShouldBeTrue)
				So(s.IsConnected(), ShouldBeFalse)
			})
		})

		Convey("When a message arrives", func() {
			_ = s.Start(context.Background())
			s.handleMessage(client, &fakeMessage{topic: "sensors/room1", payload: []byte("21.5")})

			Convey("Then it should be dispatched verbatim", func() {
				So(len(d.got), ShouldEqual, 1)
				So(d.got[0].Topic, ShouldEqual, "sensors/room1")
				So(d.got[0].Payload, ShouldEqual, "21.5")
				So(d.got[0].ReceivedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the start context is cancelled before the client stops", func() {
			startCtx, cancel := context.WithCancel(context.Background())
			So(s.Start(startCtx), ShouldBeNil)
			cancel()
			s.handleMessage(client, &fakeMessage{topic: "sensors/late", payload: []byte("7")})

			Convey("Then the late message is still dispatched with a live context", func() {
				So(len(d.got), ShouldEqual, 1)
				So(d.ctxErrs[0], ShouldBeNil)
			})
		})

		Convey("When a callback fires concurrently with Start", func() {
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.onConnectionLost(client, errors.New("reset"))
			}()
			So(s.Start(context.Background()), ShouldBeNil)
			wg.Wait()

			Convey("Then the context handoff is synchronized", func() {
				So(s.runContext(), ShouldNotBeNil)
			})
		})

		Convey("When the dispatcher rejects a message", func() {
			d.fail = errors.New("queue full")

			Convey("Then the callback should not panic", func() {
				So(func() {
					s.handleMessage(client, &fakeMessage{topic: "t", payload: nil})
				}, ShouldNotPanic)
			})
		})

		Convey("When the connect fails", func() {
			client.connectToken = &doneToken{complete: true, err: errors.New("not authorized")}
			err := s.Start(context.Background())

			Convey("Then the error should be wrapped", func() {
				So(errors.Is(err, ErrConnect), ShouldBeTrue)
			})
		})

		Convey("When the connect does not complete in time", func() {
			client.connectToken = &doneToken{complete: false}

			Convey("Then Start should return and leave retries to the client", func() {
				So(s.Start(context.Background()), ShouldBeNil)
			})
		})

		Convey("When the subscribe fails", func() {
			client.subscribeToken = &doneToken{complete: true, err: errors.New("refused")}

			Convey("Then the error should be wrapped", func() {
				err := s.subscribe(context.Background(), client)
				So(errors.Is(err, ErrSubscribe), ShouldBeTrue)
			})
		})

		Convey("When the subscribe times out", func() {
			client.subscribeToken = &doneToken{complete: false}

			Convey("Then a timeout should be reported", func() {
				err := s.subscribe(context.Background(), client)
				So(errors.Is(err, ErrTimeout), ShouldBeTrue)
			})
		})
	})

	Convey("Given a subscriber without a dispatcher", t, func() {
		_ = logger.Init()
		s := NewSubscriber(nil)

		Convey("Then Start should fail", func() {
			So(errors.Is(s.Start(context.Background()), ErrNoDispatcher), ShouldBeTrue)
		})
	})
}

func TestGenerateClientID(t *testing.T) {
	Convey("Given generated client IDs", t, func() {
		a, b := GenerateClientID(), GenerateClientID()

		Convey("Then they should be prefixed, short and unique", func() {
			So(strings.HasPrefix(a, "topicsink-"), ShouldBeTrue)
			So(len(a), ShouldBeLessThanOrEqualTo, 23)
			So(a, ShouldNotEqual, b)
		})
	})
}
