package sink

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/city-traffic/internal/broker"
	"github.com/ukydev/city-traffic/internal/config"
	"github.com/ukydev/city-traffic/internal/db"
)

// Open connects the outputs named in cfg. Outputs without configuration are
// left nil.
func Open(ctx context.Context, cfg config.Config) (*Fanout, error) {
	f := &Fanout{}

	if cfg.MongoURI != "" {
		client, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		database := client.Database(cfg.MongoDB)
		f.Trips = &db.MongoCollection{Collection: database.Collection(db.TripCollectionName)}
		f.Telemetry = &db.MongoCollection{Collection: database.Collection(db.TelemetryCollectionName)}
		f.closers = append(f.closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.WithError(err).Warn("Failed to disconnect from MongoDB")
			}
		})
		log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
	}

	if cfg.MQTTBroker != "" {
		clientID := fmt.Sprintf("city-traffic-%s", uuid.NewString()[:8])
		p, err := broker.NewMQTTPublisher(cfg.MQTTBroker, clientID, cfg.MQTTTopic)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.Publisher = p
	}

	if cfg.ReportURL != "" {
		f.Reporter = NewScoreboard(cfg.ReportURL, cfg.ReportName, cfg.ReportEvery)
	}

	return f, nil
}
