// Copyright (c) 2021 ubirch GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"

	log "github.com/sirupsen/logrus"
)

const (
	secretLength = 32

	defaultAlgorithm = "ES256"

	defaultTCPAddr = ":8080"

	defaultTLSCertFile = "cert.pem"
	defaultTLSKeyFile  = "key.pem"

	defaultDbMaxOpenConns    = 10
	defaultDbMaxIdleConns    = 10
	defaultDbConnMaxLifetime = 10
	defaultDbConnMaxIdleTime = 1
)

// DatabaseParams holds the tunable connection-pool knobs for the identity
// store, applied to the pq-backed *sql.DB in database.go.
type DatabaseParams struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Config is the signing daemon's runtime configuration, loaded either from
// a JSON file or (when COSE_SECRET32 is set) from the environment via
// envconfig.
type Config struct {
	SecretBase64      string `json:"secret32" envconfig:"SECRET32"`                      // 32 byte secret used to encrypt stored private keys (mandatory)
	RegisterAuth      string `json:"registerAuth" envconfig:"REGISTERAUTH"`              // auth token needed for new identity registration
	DefaultAlgorithm  string `json:"defaultAlgorithm" envconfig:"DEFAULT_ALGORITHM"`     // COSE algorithm name used for newly registered identities
	PostgresDSN       string `json:"postgresDSN" envconfig:"POSTGRES_DSN"`               // data source name for postgres database
	DbMaxOpenConns    string `json:"dbMaxOpenConns" envconfig:"DB_MAX_OPEN_CONNS"`       // maximum number of open connections to the database
	DbMaxIdleConns    string `json:"dbMaxIdleConns" envconfig:"DB_MAX_IDLE_CONNS"`       // maximum number of connections in the idle connection pool
	DbConnMaxLifetime string `json:"dbConnMaxLifetime" envconfig:"DB_CONN_MAX_LIFETIME"` // maximum amount of time in minutes a connection may be reused
	DbConnMaxIdleTime string `json:"dbConnMaxIdleTime" envconfig:"DB_CONN_MAX_IDLE_TIME"` // maximum amount of time in minutes a connection may be idle
	TCP_addr          string `json:"TCP_addr"`                                           // the TCP address for the server to listen on, in the form "host:port"
	TLS               bool   `json:"TLS"`                                                // enable serving HTTPS endpoints, defaults to 'false'
	TLS_CertFile      string `json:"TLSCertFile"`                                         // filename of TLS certificate file name, defaults to "cert.pem"
	TLS_KeyFile       string `json:"TLSKeyFile"`                                          // filename of TLS key file name, defaults to "key.pem"
	Debug             bool   `json:"debug"`                                              // enable extended debug output, defaults to 'false'
	LogTextFormat     bool   `json:"logTextFormat"`                                       // log in text format for better human readability, default format is JSON

	configDir   string // directory where config is stored
	secretBytes []byte // the decoded key store secret
	dbParams    DatabaseParams
}

func (c *Config) Load(configDir string, filename string) error {
	c.configDir = configDir

	var err error
	if os.Getenv("COSE_SECRET32") != "" {
		err = c.loadEnv()
	} else {
		err = c.loadFile(filename)
	}
	if err != nil {
		return err
	}

	if c.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if c.LogTextFormat {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000 -0700"})
	}

	c.secretBytes, err = base64.StdEncoding.DecodeString(c.SecretBase64)
	if err != nil {
		return fmt.Errorf("unable to decode base64 encoded secret (%s): %v", c.SecretBase64, err)
	}

	if err := c.checkMandatory(); err != nil {
		return err
	}

	c.setDefaults()

	return c.setDbParams()
}

// loadEnv reads the configuration from environment variables
func (c *Config) loadEnv() error {
	log.Infof("loading configuration from environment variables")
	return envconfig.Process("cose", c)
}

// loadFile reads the configuration from a json file
func (c *Config) loadFile(filename string) error {
	configFile := filepath.Join(c.configDir, filename)
	log.Infof("loading configuration from file: %s", configFile)

	fileHandle, err := os.Open(configFile)
	if err != nil {
		return err
	}
	defer fileHandle.Close()

	return json.NewDecoder(fileHandle).Decode(c)
}

func (c *Config) checkMandatory() error {
	if len(c.secretBytes) != secretLength {
		return fmt.Errorf("secret for key encryption ('secret32') length must be %d bytes (is %d)", secretLength, len(c.secretBytes))
	}

	if len(c.RegisterAuth) == 0 {
		return fmt.Errorf("auth token for identity registration ('registerAuth') wasn't set")
	}

	return nil
}

func (c *Config) setDefaults() {
	if c.DefaultAlgorithm == "" {
		c.DefaultAlgorithm = defaultAlgorithm
	}
	log.Debugf("default signing algorithm: %s", c.DefaultAlgorithm)

	if c.TCP_addr == "" {
		c.TCP_addr = defaultTCPAddr
	}
	log.Debugf("TCP address: %s", c.TCP_addr)

	if c.TLS {
		log.Debug("TLS enabled")

		if c.TLS_CertFile == "" {
			c.TLS_CertFile = defaultTLSCertFile
		}
		c.TLS_CertFile = filepath.Join(c.configDir, c.TLS_CertFile)
		log.Debugf(" - Cert: %s", c.TLS_CertFile)

		if c.TLS_KeyFile == "" {
			c.TLS_KeyFile = defaultTLSKeyFile
		}
		c.TLS_KeyFile = filepath.Join(c.configDir, c.TLS_KeyFile)
		log.Debugf(" -  Key: %s", c.TLS_KeyFile)
	}
}

func (c *Config) setDbParams() error {
	if c.DbMaxOpenConns == "" {
		c.dbParams.MaxOpenConns = defaultDbMaxOpenConns
	} else {
		i, err := strconv.Atoi(c.DbMaxOpenConns)
		if err != nil {
			return fmt.Errorf("failed to set DB parameter MaxOpenConns: %v", err)
		}
		c.dbParams.MaxOpenConns = i
	}

	if c.DbMaxIdleConns == "" {
		c.dbParams.MaxIdleConns = defaultDbMaxIdleConns
	} else {
		i, err := strconv.Atoi(c.DbMaxIdleConns)
		if err != nil {
			return fmt.Errorf("failed to set DB parameter MaxIdleConns: %v", err)
		}
		c.dbParams.MaxIdleConns = i
	}

	if c.DbConnMaxLifetime == "" {
		c.dbParams.ConnMaxLifetime = defaultDbConnMaxLifetime * time.Minute
	} else {
		i, err := strconv.Atoi(c.DbConnMaxLifetime)
		if err != nil {
			return fmt.Errorf("failed to set DB parameter ConnMaxLifetime: %v", err)
		}
		c.dbParams.ConnMaxLifetime = time.Duration(i) * time.Minute
	}

	if c.DbConnMaxIdleTime == "" {
		c.dbParams.ConnMaxIdleTime = defaultDbConnMaxIdleTime * time.Minute
	} else {
		i, err := strconv.Atoi(c.DbConnMaxIdleTime)
		if err != nil {
			return fmt.Errorf("failed to set DB parameter ConnMaxIdleTime: %v", err)
		}
		c.dbParams.ConnMaxIdleTime = time.Duration(i) * time.Minute
	}

	return nil
}
