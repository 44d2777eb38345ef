package main

import (
	"crypto/tls"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"contactdesk-api/api"
	"contactdesk-api/faults"
	"contactdesk-api/storage"
	"contactdesk-api/store"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	var rng *rand.Rand
	if v := os.Getenv("SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Fatalf("invalid SEED: %v", err)
		}
		rng = rand.New(rand.NewSource(seed))
	}

	fs := storage.NewFileStore(dataDir)
	contactsStore, tasksStore := store.Open(fs, rng)

	var contacts api.ContactStore = contactsStore
	var tasks api.TaskStore = tasksStore

	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		ttl := 30 * time.Second
		if v := os.Getenv("LIST_CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid LIST_CACHE_TTL: %v", err)
			}
			ttl = d
		}
		rc := redis.NewClient(redisOptions(redisConn))
		contacts = storage.NewCachedContacts(contactsStore, rc, ttl)
		tasks = storage.NewCachedTasks(tasksStore, rc, ttl)
		log.Infof("list cache enabled, ttl: %v", ttl)
	}

	if disabled, err := strconv.ParseBool(os.Getenv("FAULTS_DISABLED")); err != nil || !disabled {
		// The policy gets its own rng; sharing one with the store would race.
		var prng *rand.Rand
		if rng != nil {
			prng = rand.New(rand.NewSource(rng.Int63()))
		}
		policy := faults.NewRandomPolicy(prng)
		contacts = faults.NewFlakyContacts(contacts, policy)
		tasks = faults.NewFlakyTasks(tasks, policy)
		log.Info("fault simulation enabled")
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, api.HeaderRequestID},
	}))
	e.Use(api.RequestIDMiddleware())

	logger := log.New()
	api.Register(e, contacts, tasks, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// redisOptions accepts either a redis URL or the comma-separated
// "host:port,password=...,ssl=true" form some hosting providers hand out.
func redisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
