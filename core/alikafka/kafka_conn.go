package alikafka

import (
	"fmt"
	"os"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"

	"github.com/StatusSSS/CopyParser/config"
	"github.com/StatusSSS/CopyParser/utils/logger"
)

// one cluster one producer
var kafkaClient *kafka.Producer
var once sync.Once

func InitKafka() error {
	kafkaClient = GetKafkaInst()
	return nil
}

func GetKafkaInst() *kafka.Producer {
	once.Do(func() {
		cfg := config.GetKafkaConfig()

		var kafkaconf = &kafka.ConfigMap{
			"api.version.request": "true",
			"message.max.bytes":   1000000,
			"linger.ms":           10,
			"retries":             30,
			"retry.backoff.ms":    1000,
			"acks":                "1"}
		kafkaconf.SetKey("bootstrap.servers", cfg.Host)

		switch cfg.Protocol {
		case "plaintext":
			kafkaconf.SetKey("security.protocol", "plaintext")
		case "sasl_ssl":
			kafkaconf.SetKey("security.protocol", "sasl_ssl")
			kafkaconf.SetKey("ssl.ca.location", "conf/ca-cert.pem")
			kafkaconf.SetKey("sasl.username", cfg.Username)
			kafkaconf.SetKey("sasl.password", cfg.Password)
			kafkaconf.SetKey("sasl.mechanism", "PLAIN")
			kafkaconf.SetKey("enable.ssl.certificate.verification", "false")
			kafkaconf.SetKey("ssl.endpoint.identification.algorithm", "None")
			kafkaconf.SetKey("ssl.ca.location", cfg.CAPath)
		case "sasl_plaintext":
			kafkaconf.SetKey("sasl.mechanism", "PLAIN")
			kafkaconf.SetKey("security.protocol", "sasl_plaintext")
			kafkaconf.SetKey("sasl.username", cfg.Username)
			kafkaconf.SetKey("sasl.password", cfg.Password)
		default:
			logger.Logrus.WithFields(logrus.Fields{"ErrMsg": "unknown protocol" + cfg.Protocol}).Error("unknown kafka protocol")
			os.Exit(1)
		}

		client, err := kafka.NewProducer(kafkaconf)
		if err != nil {
			logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err}).Error("connect kafka failed")
			os.Exit(1)
		}

		go func(p *kafka.Producer) {
			for e := range p.Events() {
				switch ev := e.(type) {
				case *kafka.Message:
					if ev.TopicPartition.Error != nil {
						logger.Logrus.WithFields(logrus.Fields{"Data": ev.TopicPartition}).Error("Delivery message failed")
					}
				}
			}
		}(client)

		kafkaClient = client
	})
	return kafkaClient
}

// SendWalletEvent publishes one admitted-wallet payload keyed by address.
func SendWalletEvent(address string, data []byte) error {
	cfg := config.GetKafkaConfig()
	if !cfg.Enabled {
		return nil
	}

	err := GetKafkaInst().Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &cfg.ProducerTopic, Partition: kafka.PartitionAny},
		Key:            []byte(address),
		Value:          data,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	GetKafkaInst().Flush(5000)

	return nil
}
