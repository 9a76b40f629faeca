// Package config defines the device and collector configuration.
//
// Values are layered: built-in defaults, then an optional YAML file pointed
// to by FACEGATE_CONFIG, then FACEGATE_-prefixed environment variables.
package config

import "time"

type Config struct {
	Reader    ReaderConfig    `koanf:"reader"`
	Camera    CameraConfig    `koanf:"camera"`
	Detector  DetectorConfig  `koanf:"detector"`
	Recognize RecognizeConfig `koanf:"recognize"`
	Display   DisplayConfig   `koanf:"display"`
	Actuators ActuatorConfig  `koanf:"actuators"`
	Quota     QuotaConfig     `koanf:"quota"`
	Session   SessionConfig   `koanf:"session"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	Notify    NotifyConfig    `koanf:"notify"`
	Recorder  RecorderConfig  `koanf:"recorder"`
	Collector CollectorConfig `koanf:"collector"`
}

type ReaderConfig struct {
	// SPIPort selects the SPI bus for the MFRC522, e.g. "/dev/spidev0.0".
	// Empty means the first available port.
	SPIPort     string `koanf:"spi_port"`
	ResetPin    string `koanf:"reset_pin"`
	IRQPin      string `koanf:"irq_pin"`
	AntennaGain int    `koanf:"antenna_gain"`
}

type CameraConfig struct {
	// StreamURL is the MJPEG stream endpoint of the camera daemon.
	StreamURL string `koanf:"stream_url"`
}

type DetectorConfig struct {
	// URL of the face detection service.
	URL          string  `koanf:"url"`
	ScaleFactor  float64 `koanf:"scale_factor"`
	MinNeighbors int     `koanf:"min_neighbors"`
}

type RecognizeConfig struct {
	// MatchThreshold is the decision boundary in distance units.
	// A face region matches when its confidence is strictly below it.
	MatchThreshold float64 `koanf:"match_threshold"`
}

type DisplayConfig struct {
	// I2CBus selects the bus for the LCD backpack, e.g. "1". Empty means
	// the first available bus.
	I2CBus string `koanf:"i2c_bus"`
	Addr   uint16 `koanf:"addr"`
	Width  int    `koanf:"width"`
}

type ActuatorConfig struct {
	BuzzerPin   string `koanf:"buzzer_pin"`
	GreenLEDPin string `koanf:"green_led_pin"`
	RedLEDPin   string `koanf:"red_led_pin"`
}

type QuotaConfig struct {
	// DailyLimit caps successful verifications per credential per day.
	DailyLimit int `koanf:"daily_limit"`
}

type SessionConfig struct {
	// MaxFrames bounds the live verification loop; 0 means unbounded.
	MaxFrames int `koanf:"max_frames"`
	// MaxDuration bounds the live verification loop; 0 means unbounded.
	MaxDuration time.Duration `koanf:"max_duration"`
	// HoldDelay is how long terminal feedback stays on screen before the
	// next session starts.
	HoldDelay time.Duration `koanf:"hold_delay"`
}

type DatasetConfig struct {
	// Dir is the enrollment root; each credential has a subdirectory of
	// JPEG images plus a name.txt file.
	Dir string `koanf:"dir"`
}

type NotifyConfig struct {
	TelegramToken  string `koanf:"telegram_token"`
	TelegramChatID string `koanf:"telegram_chat_id"`
}

type RecorderConfig struct {
	// URL of the attendance collector endpoint.
	URL string `koanf:"url"`
}

type CollectorConfig struct {
	Addr           string `koanf:"addr"`
	CSVPath        string `koanf:"csv_path"`
	AllowedOrigins string `koanf:"allowed_origins"`
}

// New returns a Config populated with defaults. Pin assignments, the LCD
// address and the thresholds mirror the reference device wiring.
func New() *Config {
	return &Config{
		Reader: ReaderConfig{
			ResetPin:    "GPIO25",
			IRQPin:      "GPIO24",
			AntennaGain: 5,
		},
		Camera: CameraConfig{
			StreamURL: "http://localhost:8081/stream",
		},
		Detector: DetectorConfig{
			URL:          "http://localhost:8000",
			ScaleFactor:  1.3,
			MinNeighbors: 5,
		},
		Recognize: RecognizeConfig{
			MatchThreshold: 40.0,
		},
		Display: DisplayConfig{
			Addr:  0x27,
			Width: 16,
		},
		Actuators: ActuatorConfig{
			BuzzerPin:   "GPIO17",
			GreenLEDPin: "GPIO26",
			RedLEDPin:   "GPIO19",
		},
		Quota: QuotaConfig{
			DailyLimit: 2,
		},
		Session: SessionConfig{
			HoldDelay: 3 * time.Second,
		},
		Dataset: DatasetConfig{
			Dir: "dataset",
		},
		Recorder: RecorderConfig{
			URL: "http://localhost:5000/attendance",
		},
		Collector: CollectorConfig{
			Addr:    ":5000",
			CSVPath: "attendance_log.csv",
		},
	}
}
