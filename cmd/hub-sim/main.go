package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"basilcare/plant-hub/internal/ecology"
	"basilcare/plant-hub/internal/hub"
	"basilcare/plant-hub/internal/model"
)

type readingPayload struct {
	SoilMoisture float64 `json:"soilMoisture"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	Light        float64 `json:"light"`
	Timestamp    string  `json:"timestamp"`
}

type carePayload struct {
	Action    string `json:"action"`
	Notes     string `json:"notes,omitempty"`
	Timestamp string `json:"timestamp"`
}

// plant is a crude soil model: moisture drains at the ecological depletion
// rate scaled to the tick, and is topped up when it crosses the water line.
type plant struct {
	moisture    float64
	temperature float64
	humidity    float64
	waterAt     float64
	waterTo     float64
}

func (p *plant) step(elapsed time.Duration, jitter float64) (watered bool) {
	p.temperature += (rand.Float64()*2 - 1) * jitter * 0.2
	p.humidity = math.Max(10, math.Min(95, p.humidity+(rand.Float64()*2-1)*jitter))

	rate := ecology.DepletionRate(model.SensorReading{
		SoilMoisture: p.moisture,
		Temperature:  p.temperature,
		Humidity:     p.humidity,
	})
	p.moisture = math.Max(0, p.moisture+rate*elapsed.Hours()/24)

	if p.moisture < p.waterAt {
		p.moisture = p.waterTo
		return true
	}
	return false
}

func (p *plant) snapshot(now time.Time) readingPayload {
	return readingPayload{
		SoilMoisture: round1(p.moisture),
		Temperature:  round1(p.temperature),
		Humidity:     round1(p.humidity),
		Light:        hub.EstimateLight(now),
		Timestamp:    now.UTC().Format(time.RFC3339Nano),
	}
}

func main() {
	brokerAddr := flag.String("broker", "tcp://localhost:1883", "MQTT broker address, e.g. tcp://localhost:1883")
	prefix := flag.String("prefix", "plants", "Topic prefix")
	plantID := flag.String("plant-id", "sim-basil", "Plant identifier")
	interval := flag.Duration("interval", 5*time.Second, "Interval between published readings")
	speedup := flag.Float64("speedup", 720, "Simulated seconds per real second")
	moisture := flag.Float64("moisture", 60, "Initial soil moisture percent")
	temperature := flag.Float64("temp", 23, "Initial temperature in Celsius")
	humidity := flag.Float64("humidity", 50, "Initial relative humidity percent")
	waterAt := flag.Float64("water-at", 28, "Moisture level that triggers a simulated watering")
	jitter := flag.Float64("jitter", 2, "Maximum random drift per tick")

	flag.Parse()

	clientID := fmt.Sprintf("%s-simulator-%d", *plantID, time.Now().UnixNano())
	opts := mqtt.NewClientOptions().AddBroker(*brokerAddr).SetClientID(clientID)
	opts = opts.SetOrderMatters(false)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("failed to connect to broker: %v", token.Error())
	}
	log.Printf("connected to MQTT broker %s as %s", *brokerAddr, clientID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	p := &plant{
		moisture:    *moisture,
		temperature: *temperature,
		humidity:    *humidity,
		waterAt:     *waterAt,
		waterTo:     math.Min(70, *waterAt+35),
	}

	publish := func(kind string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			log.Printf("failed to encode payload: %v", err)
			return
		}

		topic := fmt.Sprintf("%s/%s/%s", *prefix, *plantID, kind)
		token := client.Publish(topic, 1, false, data)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("publish error: %v", err)
			return
		}
		log.Printf("published %s %s", topic, data)
	}

	publish("readings", p.snapshot(time.Now()))

	for {
		select {
		case <-ctx.Done():
			log.Print("received shutdown signal, disconnecting")
			client.Disconnect(250)
			return
		case <-ticker.C:
			simulated := time.Duration(float64(*interval) * *speedup)
			if p.step(simulated, *jitter) {
				publish("care", carePayload{
					Action:    "watered",
					Notes:     "simulated watering",
					Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
				})
			}
			publish("readings", p.snapshot(time.Now()))
		}
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
