package channels

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/verbsbot/pkg/bus"
	"github.com/tinyland-inc/verbsbot/pkg/config"
	"github.com/tinyland-inc/verbsbot/pkg/intent"
	"github.com/tinyland-inc/verbsbot/pkg/vk"
)

func testVKConfig(apiURL string) config.VKConfig {
	return config.VKConfig{
		Enabled:        true,
		Token:          "token",
		GroupID:        1,
		APIURL:         apiURL,
		APIVersion:     "5.199",
		Wait:           time.Second,
		Backoff:        10 * time.Millisecond,
		RequestTimeout: time.Second,
	}
}

func TestVKChannel_AcquisitionFailureReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":{"error_code":5,"error_msg":"User authorization failed"}}`)
	}))
	defer srv.Close()

	m, err := NewManager(nil, bus.NewMessageBus(0), nil)
	require.NoError(t, err)
	ch := NewVKChannel(testVKConfig(srv.URL), intent.Static{Reply: "ok"}, time.Second)
	m.Register(ch)

	require.NoError(t, m.StartAll(context.Background()))

	select {
	case err := <-m.Failures():
		var acqErr *vk.AcquisitionError
		assert.ErrorAs(t, err, &acqErr)
	case <-time.After(5 * time.Second):
		t.Fatal("no failure reported")
	}
	assert.Eventually(t, func() bool { return !ch.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestVKChannel_StartStop(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups.getLongPollServer", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"response":{"server":%q,"key":"K","ts":"1"}}`, "http://"+r.Host+"/lp")
	})
	mux.HandleFunc("/lp", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(20 * time.Millisecond):
		}
		fmt.Fprint(w, `{"ts":"1","updates":[]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ch := NewVKChannel(testVKConfig(srv.URL), intent.Static{Reply: "ok"}, time.Second)
	require.NoError(t, ch.Start(context.Background()))
	assert.True(t, ch.IsRunning())
	assert.Error(t, ch.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ch.Stop(ctx))
	assert.False(t, ch.IsRunning())
}

func TestVKChannel_SendRequiresRunning(t *testing.T) {
	ch := NewVKChannel(testVKConfig("http://127.0.0.1:1"), intent.Static{}, time.Second)
	assert.Error(t, ch.Send(context.Background(), bus.OutboundMessage{ChatID: "1", Content: "x"}))
}
