//go:build integration_test || all_tests

package integration_testing

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const (
	serverPort    = 9000
	serverHost    = "127.0.0.1"
	testDBName    = "pushups_db"
	adminSecret   = "integration-secret"
	rateLimitPerM = 3
)

var serverEndpoint = fmt.Sprintf("http://%s:%d", serverHost, serverPort)

type containers struct {
	dockerPool   *dockertest.Pool
	redisPort    string
	postgresPort string
	teardown     []func()
}

func startContainers() (*containers, error) {
	c := &containers{}

	var err error
	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	c.dockerPool, err = dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("could not create new dockertest pool: %w", err)
	}
	c.dockerPool.MaxWait = time.Minute

	// uses pool to try to connect to Docker
	if err = c.dockerPool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping dockertest pool: %w", err)
	}

	if c.redisPort, err = c.redisSetup(); err != nil {
		c.cleanup()
		return nil, fmt.Errorf("failed to setup redis: %w", err)
	}
	if c.postgresPort, err = c.postgresSetup(); err != nil {
		c.cleanup()
		return nil, fmt.Errorf("failed to setup postgres: %w", err)
	}
	return c, nil
}

func (c *containers) cleanup() {
	for _, teardown := range c.teardown {
		teardown()
	}
}

func (c *containers) redisSetup() (string, error) {
	redisResource, err := c.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "6.2",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		return "", fmt.Errorf("run redis: %w", err)
	}

	c.teardown = append(c.teardown, func() {
		if err := redisResource.Close(); err != nil {
			log.Printf("close redis container: %s", err)
		}
	})

	return redisResource.GetPort("6379/tcp"), nil
}

func (c *containers) postgresSetup() (string, error) {
	pgResource, err := c.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_HOST_AUTH_METHOD=trust",
			"POSTGRES_DB=" + testDBName,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return "", fmt.Errorf("dockerpool run postgres: %w", err)
	}

	c.teardown = append(c.teardown, func() {
		if err := pgResource.Close(); err != nil {
			log.Printf("close postgres container: %s", err)
		}
	})

	pgPort := pgResource.GetPort("5432/tcp")
	dsn := fmt.Sprintf("postgres://postgres@localhost:%s/%s?sslmode=disable", pgPort, testDBName)

	// postgres needs a moment before it accepts connections
	if err := c.dockerPool.Retry(func() error {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}); err != nil {
		return "", fmt.Errorf("ping db: %w", err)
	}

	return pgPort, nil
}
