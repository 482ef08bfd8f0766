package smartmoney

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/StatusSSS/CopyParser/core/dexscan"
	"github.com/StatusSSS/CopyParser/core/model"
	"github.com/StatusSSS/CopyParser/core/redis"
	"github.com/StatusSSS/CopyParser/utils/logger"
)

// QuantFields is the defaulted view of one quant-API wallet record. Missing
// numeric fields come back as 0, a missing timestamp as "N/A".
type QuantFields struct {
	SolBalance     float64
	Pnl            float64 // fraction, ×100 gives percent
	Winrate        float64 // fraction 0..1
	RealizedProfit float64
	LastActive     string
}

// ExtractQuantFields picks the period-keyed fields out of a decoded record.
func ExtractQuantFields(d *model.QuantData, period string) QuantFields {
	f := QuantFields{LastActive: "N/A"}

	if d.SolBalance != nil {
		f.SolBalance = *d.SolBalance
	}
	if d.Winrate != nil {
		f.Winrate = *d.Winrate
	}

	if period == "30d" {
		if d.Pnl30d != nil {
			f.Pnl = *d.Pnl30d
		}
		if d.RealizedProfit30d != nil {
			f.RealizedProfit = *d.RealizedProfit30d
		}
	} else {
		if d.Pnl7d != nil {
			f.Pnl = *d.Pnl7d
		}
		if d.RealizedProfit7d != nil {
			f.RealizedProfit = *d.RealizedProfit7d
		}
	}

	if d.LastActiveTimestamp != nil {
		f.LastActive = time.Unix(*d.LastActiveTimestamp, 0).Format("2006-01-02 15:04:05")
	}
	return f
}

// DecodeQuantRecord decodes one raw quant-API page. The interactive flow sees
// the JSON wrapped in a <pre> tag, so that wrapper is stripped when present.
// A decoded record without the data sub-object is a shape failure ("no data");
// a body that is not JSON at all is a different failure, anti-bot challenge
// pages come back like that with a 200 status.
func DecodeQuantRecord(raw, period string) (QuantFields, error) {
	if i := strings.Index(raw, "<pre>"); i >= 0 {
		raw = raw[i+len("<pre>"):]
		if j := strings.Index(raw, "</pre>"); j >= 0 {
			raw = raw[:j]
		}
	}

	var resp model.QuantResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return QuantFields{}, fmt.Errorf("quant record not decodable: %w", err)
	}
	if resp.Data == nil {
		return QuantFields{}, dexscan.ErrShape
	}
	return ExtractQuantFields(resp.Data, period), nil
}

// decodeFetched classifies a freshly fetched body: an undecodable page stays
// on the pool's retry path, a decoded record missing its data sub-object does
// not.
func decodeFetched(raw, url, period string) (QuantFields, error) {
	fields, err := DecodeQuantRecord(raw, period)
	if err != nil && !errors.Is(err, dexscan.ErrShape) {
		return QuantFields{}, &dexscan.TransientFetchError{URL: url, Err: err}
	}
	return fields, err
}

func quantCacheKey(period, address string) string {
	return fmt.Sprintf("quant:gmgn:%s:%s", period, address)
}

// FetchQuantRecord serves a wallet's quant record from the redis cache and
// falls back to a live page visit on a miss. Only bodies that decode to a
// full record are cached, so a challenge page served with a 200 never
// poisons the TTL window; cache trouble never fails the item.
func FetchQuantRecord(sess dexscan.Session, apiURL, address, period string, ttl time.Duration) (QuantFields, error) {
	ctx := context.Background()
	key := quantCacheKey(period, address)

	if ok, err := redis.Exists(ctx, key); err != nil {
		logger.Logrus.WithFields(logrus.Fields{"Key": key, "ErrMsg": err}).Warn("quant cache check failed")
	} else if ok {
		cached, err := redis.Get(ctx, key)
		if err != nil && err != redis.Nil {
			logger.Logrus.WithFields(logrus.Fields{"Key": key, "ErrMsg": err}).Warn("quant cache get failed")
		}
		if err == nil && cached != "" {
			fields, derr := DecodeQuantRecord(cached, period)
			if derr == nil {
				return fields, nil
			}
			logger.Logrus.WithFields(logrus.Fields{"Key": key, "ErrMsg": derr}).Warn("cached quant record unusable, refetch")
		}
	}

	url := fmt.Sprintf("%s%s?period=%s", apiURL, address, period)
	raw, err := sess.FetchPage(url)
	if err != nil {
		return QuantFields{}, err
	}

	fields, err := decodeFetched(raw, url, period)
	if err != nil {
		return QuantFields{}, err
	}

	if err := redis.Set(ctx, key, raw, ttl); err != nil {
		logger.Logrus.WithFields(logrus.Fields{"Key": key, "ErrMsg": err}).Warn("quant cache set failed")
	}
	return fields, nil
}
