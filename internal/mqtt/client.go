package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"posenet-live-go/config"
	"posenet-live-go/internal/core/pose"
)

var ( // Use vars for functions to allow mocking in tests later if needed
	NewClientFunc = mqtt.NewClient
)

// Client wraps the MQTT client and its configuration.
type Client struct {
	Cfg         config.MQTTConfig
	Client      mqtt.Client
	IsConnected bool

	lastCount int
	haveCount bool
}

// poseMessage is the payload published whenever the detected pose count changes.
type poseMessage struct {
	Timestamp time.Time `json:"timestamp"`
	PoseCount int       `json:"pose_count"`
	Source    string    `json:"source"`
}

// IsActuallyConnected checks the status of the underlying Paho client.
func (c *Client) IsActuallyConnected() bool {
	return c.Client != nil && c.Client.IsConnected()
}

// NewMQTTClient creates and configures a new MQTT client wrapper.
func NewMQTTClient(cfg config.MQTTConfig) (*Client, error) {
	if !cfg.Enabled {
		log.Info("MQTT client is disabled in the configuration.")
		return nil, nil // Not an error, just not enabled
	}

	mqttClient := &Client{
		Cfg: cfg,
	}

	// Construct the full broker URL
	brokerURL := fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	// Configure connection callbacks
	opts.SetConnectionLostHandler(mqttClient.connectionLostHandler)
	opts.SetOnConnectHandler(mqttClient.onConnectHandler)
	// Automatically reconnect
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	client := NewClientFunc(opts)
	mqttClient.Client = client

	return mqttClient, nil
}

// Start connects to the MQTT broker.
func (c *Client) Start() error {
	if c.Client == nil {
		return fmt.Errorf("MQTT client not initialized (likely disabled)")
	}
	brokerURL := fmt.Sprintf("tcp://%s:%d", c.Cfg.Broker, c.Cfg.Port)
	log.Infof("Attempting to connect to MQTT broker: %s", brokerURL)
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		log.Errorf("Failed to connect to MQTT broker %s: %v", brokerURL, token.Error())
		// Don't return error here, rely on auto-reconnect
		return token.Error()
	}
	return nil
}

// Stop disconnects the MQTT client.
func (c *Client) Stop() {
	if c.Client != nil && c.Client.IsConnected() {
		log.Info("Disconnecting MQTT client...")
		c.Client.Disconnect(250) // Wait 250ms for disconnection
		log.Info("MQTT client disconnected.")
	}
	c.IsConnected = false
}

// PublishPoses meldet die aktuelle Pose-Anzahl an den Broker, aber nur
// wenn sie sich gegenüber dem letzten Frame geändert hat. So bleibt der
// Topic-Verkehr bei ruhiger Szene minimal.
func (c *Client) PublishPoses(poses []pose.Pose, source string) {
	if c == nil || c.Client == nil || !c.Client.IsConnected() {
		return
	}

	count := len(poses)
	if c.haveCount && count == c.lastCount {
		return
	}
	c.lastCount = count
	c.haveCount = true

	msg := poseMessage{
		Timestamp: time.Now(),
		PoseCount: count,
		Source:    source,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal MQTT pose message: %v", err)
		return
	}

	token := c.Client.Publish(c.Cfg.Topic, 1, false, payload)
	// Fire-and-forget: the frame loop must not block on the broker.
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Errorf("Failed to publish to MQTT topic %s: %v", c.Cfg.Topic, token.Error())
		}
	}()
}

// connectionLostHandler logs when the connection is lost.
func (c *Client) connectionLostHandler(client mqtt.Client, err error) {
	log.Errorf("MQTT connection lost: %v. Attempting to reconnect...", err)
	c.IsConnected = false
}

// onConnectHandler logs the established connection.
func (c *Client) onConnectHandler(client mqtt.Client) {
	brokerURL := fmt.Sprintf("tcp://%s:%d", c.Cfg.Broker, c.Cfg.Port)
	log.Infof("Successfully connected to MQTT broker: %s", brokerURL)
	c.IsConnected = true
}
