package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"go.uber.org/zap/zaptest"

	"miuinotify/internal/chat"
	"miuinotify/internal/commontypes"
)

type sentMessage struct {
	ChannelID string
	Message   chat.Message
}

// MockClient is a mock implementation of chat.Client
type MockClient struct {
	channels []chat.Channel
	sendFunc func(channelID string, msg chat.Message) error
	openErr  error

	opened bool
	closed bool
	sent   []sentMessage
}

func (m *MockClient) Open(ctx context.Context) error {
	m.opened = true
	return m.openErr
}

func (m *MockClient) Channels(ctx context.Context) ([]chat.Channel, error) {
	return m.channels, nil
}

func (m *MockClient) Send(ctx context.Context, channelID string, msg chat.Message) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(channelID, msg); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, sentMessage{ChannelID: channelID, Message: msg})
	return nil
}

func (m *MockClient) Close() error {
	m.closed = true
	return nil
}

// MockCatalog is an in-memory chat.Catalog
type MockCatalog struct {
	devices      map[string]commontypes.Device
	incrementals map[string]*commontypes.Update
}

var errUnknownDevice = errors.New("unknown device")

func (m *MockCatalog) FullName(ctx context.Context, codename string) (string, error) {
	dev, ok := m.devices[codename]
	if !ok {
		return "", errUnknownDevice
	}
	return dev.FullName, nil
}

func (m *MockCatalog) DeviceName(ctx context.Context, codename string) (string, error) {
	dev, ok := m.devices[codename]
	if !ok {
		return "", errUnknownDevice
	}
	return dev.Family, nil
}

func (m *MockCatalog) Incremental(ctx context.Context, version string) (*commontypes.Update, error) {
	return m.incrementals[version], nil
}

func newCatalog() *MockCatalog {
	return &MockCatalog{
		devices: map[string]commontypes.Device{
			"lancelot_global": {FullName: "Redmi 9 Global", Family: "Redmi 9"},
			"alioth_global":   {FullName: "POCO F3 Global", Family: "POCO F3"},
			"cupid":           {FullName: "Xiaomi 12 China", Family: "Xiaomi 12"},
		},
		incrementals: map[string]*commontypes.Update{
			"V12.5.3.0": {Link: "https://bigota.d.miui.com/V12.5.3.0/ota.zip", Type: "Incremental"},
		},
	}
}

func TestNotifier_PostUpdates(t *testing.T) {
	ctx := context.Background()
	client := &MockClient{channels: serverChannels()}
	n := chat.NewNotifier(client, newCatalog(), chat.DefaultCategory, website, zaptest.NewLogger(t))

	poco := recoveryUpdate()
	poco.Codename = "alioth_global"
	poco.Version = "V13.0.1.0"
	xiaomi := recoveryUpdate()
	xiaomi.Codename = "cupid"
	xiaomi.Method = "Fastboot"

	results, err := n.PostUpdates(ctx, []commontypes.Update{recoveryUpdate(), poco, xiaomi})
	gt.NoError(t, err)
	gt.True(t, client.opened)
	gt.True(t, client.closed)

	gt.Equal(t, len(results), 3)
	for _, res := range results {
		gt.Equal(t, res.Status, chat.StatusSent)
		gt.NoError(t, res.Err)
	}

	gt.Equal(t, len(client.sent), 3)
	gt.Equal(t, client.sent[0].ChannelID, "5")
	gt.Equal(t, len(client.sent[0].Message.Fields), 4)
	gt.Equal(t, client.sent[1].ChannelID, "2")
	gt.Equal(t, len(client.sent[1].Message.Fields), 3)
	// no channel prefix matches "xiaomi 12"
	gt.Equal(t, client.sent[2].ChannelID, "1")
}

func TestNotifier_PostUpdates_SkipsFailures(t *testing.T) {
	ctx := context.Background()
	client := &MockClient{
		channels: serverChannels(),
		sendFunc: func(channelID string, msg chat.Message) error {
			if channelID == "2" {
				return errors.New("HTTP 403 Forbidden")
			}
			return nil
		},
	}
	n := chat.NewNotifier(client, newCatalog(), chat.DefaultCategory, website, zaptest.NewLogger(t))

	poco := recoveryUpdate()
	poco.Codename = "alioth_global"
	unknown := recoveryUpdate()
	unknown.Codename = "nosuchdevice"

	results, err := n.PostUpdates(ctx, []commontypes.Update{poco, unknown, recoveryUpdate()})
	gt.NoError(t, err)
	gt.Equal(t, len(results), 3)

	gt.Equal(t, results[0].Status, chat.StatusDeliveryFailed)
	gt.True(t, errors.Is(results[0].Err, chat.ErrDeliveryFailed))

	gt.Equal(t, results[1].Status, chat.StatusLookupFailed)
	gt.True(t, errors.Is(results[1].Err, chat.ErrLookupFailed))
	gt.True(t, errors.Is(results[1].Err, errUnknownDevice))

	gt.Equal(t, results[2].Status, chat.StatusSent)
	gt.Equal(t, len(client.sent), 1)
}

func TestNotifier_PostUpdates_NoFallback(t *testing.T) {
	ctx := context.Background()
	client := &MockClient{channels: []chat.Channel{
		{ID: "2", Name: "poco_series", Category: chat.DefaultCategory},
	}}
	n := chat.NewNotifier(client, newCatalog(), chat.DefaultCategory, website, zaptest.NewLogger(t))

	poco := recoveryUpdate()
	poco.Codename = "alioth_global"

	results, err := n.PostUpdates(ctx, []commontypes.Update{recoveryUpdate(), poco})
	gt.NoError(t, err)
	gt.Equal(t, results[0].Status, chat.StatusNoDestination)
	gt.True(t, errors.Is(results[0].Err, chat.ErrNoDestination))
	gt.Equal(t, results[1].Status, chat.StatusSent)
}

func TestNotifier_PostUpdates_OpenError(t *testing.T) {
	client := &MockClient{openErr: errors.New("invalid token")}
	n := chat.NewNotifier(client, newCatalog(), chat.DefaultCategory, website, zaptest.NewLogger(t))

	_, err := n.PostUpdates(context.Background(), []commontypes.Update{recoveryUpdate()})
	gt.Error(t, err)
	gt.String(t, err.Error()).Contains("invalid token")
	gt.Equal(t, len(client.sent), 0)
}
