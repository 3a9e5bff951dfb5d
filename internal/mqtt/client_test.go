package mqtt

import (
	"testing"

	"solaramp/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestSwitchCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "solaramp"
	topic := "solaramp/switch/charge_control/command"
	r := switchCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "charge_control", "device extract")
}

func TestSwitchCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "solaramp"
	topic := "solaramp/switch/charge_control/state"
	r := switchCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestInputNumberCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "solaramp"
	topic := "solaramp/number/night_threshold/set"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "night_threshold", "number_id extract")
}

func TestInputNumberCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "solaramp"
	topic := "solaramp/switch/night_threshold/command"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestParseMQTTCommand(t *testing.T) {

	assert := assert.New(t)

	client := testClient()

	cmd, err := client.ParseMQTTCommand(testMessage{topic: "solaramp/switch/charge_control/command", payload: "on"})
	assert.NoError(err)
	assert.Equal("switch", cmd.Command)
	assert.Equal("charge_control", cmd.DeviceId)
	assert.Equal("on", cmd.Payload)

	cmd, err = client.ParseMQTTCommand(testMessage{topic: "solaramp/number/night_threshold/set", payload: "650"})
	assert.NoError(err)
	assert.Equal("number", cmd.Command)
	assert.Equal("night_threshold", cmd.DeviceId)
	assert.Equal("650", cmd.Payload)
}

func TestParseMQTTCommandRejectsBadInput(t *testing.T) {

	assert := assert.New(t)

	client := testClient()

	// state topics are not commands
	_, err := client.ParseMQTTCommand(testMessage{topic: "solaramp/switch/charge_control/state", payload: "on"})
	assert.Error(err)

	// a number command must carry a parseable number
	_, err = client.ParseMQTTCommand(testMessage{topic: "solaramp/number/night_threshold/set", payload: "plenty"})
	assert.Error(err)
}

func testClient() *MQTTClient {
	cfg := &config.Config{
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "solaramp",
		},
	}
	return CreateMQTTClient(cfg, OptsFromConfig(cfg), nil, nil)
}

type testMessage struct {
	topic   string
	payload string
}

func (m testMessage) Duplicate() bool   { return false }
func (m testMessage) Qos() byte         { return 0 }
func (m testMessage) Retained() bool    { return false }
func (m testMessage) Topic() string     { return m.topic }
func (m testMessage) MessageID() uint16 { return 0 }
func (m testMessage) Payload() []byte   { return []byte(m.payload) }
func (m testMessage) Ack()              {}
