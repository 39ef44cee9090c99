package sink

import (
	"fmt"
	"log"
	"strconv"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/vbragin/hoymiles-dtu/internal/decode"
)

// MQTTConfig holds the publisher's connection settings.
type MQTTConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// Prefix is the leading topic segment; defaults to "ahoy".
	Prefix string
}

// MQTT publishes one topic per named measurement, in the form
// "<prefix>/<serial>/<section>/<field>", connecting once at startup with
// auto-reconnect. Publish failures are logged and never block other
// sinks or fail the poll cycle.
type MQTT struct {
	cfg    MQTTConfig
	client paho.Client
}

// NewMQTT connects to the broker described by cfg and returns a ready
// publisher.
func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "ahoy"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID("hoymiles-dtu")
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(paho.Client, error) {
		log.Printf("sink: mqtt connection lost")
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("sink: mqtt connect: %w", token.Error())
	}

	return &MQTT{cfg: cfg, client: client}, nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
	}
}

func (m *MQTT) Publish(rec decode.Record) error {
	if !rec.Valid {
		return nil
	}

	m.publishField(rec.InverterSerial, "ac", "voltage", rec.AC.Voltage)
	m.publishField(rec.InverterSerial, "ac", "current", rec.AC.Current)
	m.publishField(rec.InverterSerial, "ac", "frequency", rec.AC.Frequency)
	m.publishField(rec.InverterSerial, "ac", "power", rec.AC.Power)
	m.publishField(rec.InverterSerial, "ac", "temperature", rec.AC.Temperature)
	m.publishField(rec.InverterSerial, "ac", "load_percent", rec.AC.LoadPercent)

	for idx, sm := range rec.Strings {
		section := fmt.Sprintf("string/%d", idx)
		m.publishField(rec.InverterSerial, section, "voltage", sm.Voltage)
		m.publishField(rec.InverterSerial, section, "current", sm.Current)
		m.publishField(rec.InverterSerial, section, "power", sm.Power)
		m.publishField(rec.InverterSerial, section, "energy_today", sm.EnergyToday)
		m.publishField(rec.InverterSerial, section, "energy_total", sm.EnergyTotal)
	}

	return nil
}

// publishField publishes one measurement at QoS 0 and logs (without
// returning) any publish failure, per the sink's independent-failure
// contract: one bad publish must not stop the rest.
func (m *MQTT) publishField(serial, section, field string, v *float64) {
	if v == nil {
		return
	}
	topic := fmt.Sprintf("%s/%s/%s/%s", m.cfg.Prefix, serial, section, field)
	payload := strconv.FormatFloat(*v, 'g', -1, 64)
	token := m.client.Publish(topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		log.Printf("sink: mqtt publish %s: %v", topic, token.Error())
	}
}
