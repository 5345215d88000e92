// Command chseed creates the events table and fills it with synthetic
// sessions for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sitepulse/internal/chstore"
	"sitepulse/internal/config"
	"sitepulse/internal/logging"
)

const eventsDDL = `
CREATE TABLE IF NOT EXISTS events
(
    timestamp                DateTime,
    site_id                  UInt32,
    event_id                 UInt64,
    session_id               String,
    user_id                  String,
    type                     LowCardinality(String),
    event_name               String,
    properties               String,
    pathname                 String,
    hostname                 String,
    querystring              String,
    page_title               String,
    referrer                 String,
    browser                  LowCardinality(String),
    browser_version          LowCardinality(String),
    operating_system         LowCardinality(String),
    operating_system_version LowCardinality(String),
    language                 LowCardinality(String),
    country                  LowCardinality(String),
    region                   LowCardinality(String),
    city                     String,
    device_type              LowCardinality(String),
    channel                  LowCardinality(String),
    screen_width             UInt16,
    screen_height            UInt16,
    url_parameters           Map(String, String)
)
ENGINE = MergeTree
PARTITION BY toYYYYMM(timestamp)
ORDER BY (site_id, timestamp)`

const insertStmt = `INSERT INTO events (
    timestamp, site_id, event_id, session_id, user_id, type, event_name,
    properties, pathname, hostname, querystring, page_title, referrer,
    browser, browser_version, operating_system, operating_system_version,
    language, country, region, city, device_type, channel,
    screen_width, screen_height, url_parameters)`

var (
	paths     = []string{"/", "/pricing", "/docs", "/docs/getting-started", "/blog", "/blog/launch", "/about", "/signup", "/login", "/features"}
	referrers = []string{"", "https://www.google.com/", "https://news.ycombinator.com/", "https://t.co/abc", "https://www.bing.com/", "https://duckduckgo.com/"}
	channels  = []string{"Direct", "Organic Search", "Social", "Referral"}
	browsers  = [][2]string{{"Chrome", "126"}, {"Firefox", "127"}, {"Safari", "17"}, {"Edge", "126"}}
	systems   = [][2]string{{"Windows", "11"}, {"macOS", "14"}, {"Linux", ""}, {"iOS", "17"}, {"Android", "14"}}
	countries = []string{"US", "DE", "GB", "FR", "ES", "BR", "IN", "JP", "NL", "SE"}
	languages = []string{"en-US", "de-DE", "en-GB", "fr-FR", "es-ES", "pt-BR"}
	devices   = []string{"Desktop", "Mobile", "Tablet"}
	screens   = [][2]uint16{{1920, 1080}, {1440, 900}, {390, 844}, {768, 1024}, {2560, 1440}}
	utms      = []map[string]string{
		nil, nil, nil,
		{"utm_source": "newsletter", "utm_medium": "email", "utm_campaign": "june-launch"},
		{"utm_source": "twitter", "utm_medium": "social"},
		{"ref": "producthunt"},
	}
	customEvents = []string{"signup", "checkout", "download", "video_play"}
)

func main() {
	hostname := flag.String("hostname", "demo.example.com", "hostname stored on seeded events")
	siteID := flag.Uint("site", 1, "site id to seed")
	sessions := flag.Int("sessions", 2000, "number of sessions to generate")
	days := flag.Int("days", 30, "spread sessions over the past N days")
	logDir := flag.String("logdir", "", "also write logs to this directory")
	seed := flag.Int64("seed", 0, "random seed, 0 uses current time")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	cfg := config.GetConfig()
	storeLogger := logging.NewLogger(logging.Config{Level: "warn", LogDir: *logDir, FileName: "chseed.log"})
	store, err := chstore.Connect(cfg, storeLogger)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to analytics store")
	}
	defer store.Close()

	ctx := context.Background()
	log.Info("creating events table")
	if err := store.Exec(ctx, eventsDDL); err != nil {
		log.WithError(err).Fatal("failed to create events table")
	}

	log.WithFields(logrus.Fields{
		"site":     *siteID,
		"sessions": *sessions,
		"days":     *days,
	}).Info("seeding demo data")

	batch, err := store.PrepareBatch(ctx, insertStmt)
	if err != nil {
		log.WithError(err).Fatal("failed to prepare insert batch")
	}

	// A pool of returning users so retention and user rollups have
	// something to chew on.
	userPool := make([]string, *sessions/4+1)
	for i := range userPool {
		userPool[i] = uuid.NewString()
	}

	var eventID uint64
	now := time.Now().UTC()
	totalEvents := 0
	for i := 0; i < *sessions; i++ {
		userID := userPool[rng.Intn(len(userPool))]
		sessionID := uuid.NewString()
		start := now.Add(-time.Duration(rng.Intn(*days*24*60)) * time.Minute)

		browser := browsers[rng.Intn(len(browsers))]
		system := systems[rng.Intn(len(systems))]
		screen := screens[rng.Intn(len(screens))]
		country := countries[rng.Intn(len(countries))]
		language := languages[rng.Intn(len(languages))]
		device := devices[rng.Intn(len(devices))]
		referrer := referrers[rng.Intn(len(referrers))]
		channel := channels[rng.Intn(len(channels))]
		urlParams := utms[rng.Intn(len(utms))]
		if urlParams == nil {
			urlParams = map[string]string{}
		}

		pageviews := 1 + rng.Intn(8)
		ts := start
		for p := 0; p < pageviews; p++ {
			eventID++
			path := paths[rng.Intn(len(paths))]
			if err := batch.Append(
				ts, uint32(*siteID), eventID, sessionID, userID,
				"pageview", "", "",
				path, *hostname, "", pageTitle(path), referrer,
				browser[0], browser[1], system[0], system[1],
				language, country, "", "", device, channel,
				screen[0], screen[1], urlParams,
			); err != nil {
				log.WithError(err).Fatal("failed to append event")
			}
			totalEvents++
			ts = ts.Add(time.Duration(10+rng.Intn(120)) * time.Second)
		}

		if rng.Intn(5) == 0 {
			eventID++
			name := customEvents[rng.Intn(len(customEvents))]
			if err := batch.Append(
				ts, uint32(*siteID), eventID, sessionID, userID,
				"custom_event", name, `{"source":"seed"}`,
				paths[rng.Intn(len(paths))], *hostname, "", "", referrer,
				browser[0], browser[1], system[0], system[1],
				language, country, "", "", device, channel,
				screen[0], screen[1], urlParams,
			); err != nil {
				log.WithError(err).Fatal("failed to append event")
			}
			totalEvents++
		}
	}

	if err := batch.Send(); err != nil {
		log.WithError(err).Fatal("failed to send batch")
	}

	log.WithFields(logrus.Fields{
		"events": totalEvents,
		"seed":   *seed,
	}).Info("seeding complete")
}

func pageTitle(path string) string {
	if path == "/" {
		return "Home"
	}
	return fmt.Sprintf("Page %s", path)
}
