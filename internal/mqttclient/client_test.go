package mqttclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTopic(t *testing.T) {
	cases := []struct {
		prefix, topic string
		plant, kind   string
		ok            bool
	}{
		{"plants", "plants/basil/readings", "basil", KindReadings, true},
		{"plants", "plants/basil/care", "basil", KindCare, true},
		{"/plants/", "plants/mint/readings", "mint", KindReadings, true},
		{"garden/plants", "garden/plants/basil/readings", "basil", KindReadings, true},
		{"", "basil/readings", "basil", KindReadings, true},
		{"plants", "plants/basil/commands", "", "", false},
		{"plants", "plants//readings", "", "", false},
		{"plants", "plants/basil/readings/extra", "", "", false},
		{"plants", "beacons/basil/readings", "", "", false},
	}
	for _, tc := range cases {
		plant, kind, ok := ParseTopic(tc.prefix, tc.topic)
		assert.Equal(t, tc.ok, ok, tc.topic)
		assert.Equal(t, tc.plant, plant, tc.topic)
		assert.Equal(t, tc.kind, kind, tc.topic)
	}
}

func TestFilters(t *testing.T) {
	s := New(Options{TopicPrefix: "/plants/"}, nil, nil)
	assert.Equal(t, []string{"plants/+/readings", "plants/+/care"}, s.Filters())
}

func TestDispatchRoutesKnownTopics(t *testing.T) {
	var got []Message
	s := New(Options{TopicPrefix: "plants"}, func(_ context.Context, m Message) {
		got = append(got, m)
	}, nil)

	s.dispatch(context.Background(), "plants/basil/readings", []byte(`{}`))
	s.dispatch(context.Background(), "plants/basil/status", []byte(`{}`))

	if assert.Len(t, got, 1) {
		assert.Equal(t, "basil", got[0].PlantID)
		assert.Equal(t, KindReadings, got[0].Kind)
	}
}

func TestStartRequiresBroker(t *testing.T) {
	s := New(Options{}, nil, nil)
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.Connected())
	s.Stop()
}
