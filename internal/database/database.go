package database

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sacoche_back_end/internal/config"
)

// Connections regroupe les clients ouverts au démarrage
type Connections struct {
	Users    *gocql.Session
	Products *gocql.Session
	Redis    *redis.Client
	Mongo    *mongo.Client
	MongoDB  *mongo.Database
	Elastic  *elasticsearch.Client
	MinIO    *minio.Client
}

// Connect ouvre toutes les connexions ; la première erreur arrête tout
func Connect(ctx context.Context, cfg *config.Config) (*Connections, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conns := &Connections{}
	var err error

	// 1. ScyllaDB : un keyspace par domaine
	if conns.Users, err = scyllaSession(cfg, cfg.UsersKeyspace); err != nil {
		return nil, err
	}
	if conns.Products, err = scyllaSession(cfg, cfg.ProductsKeyspace); err != nil {
		conns.Close()
		return nil, err
	}

	// 2. Redis
	conns.Redis = redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	if err := conns.Redis.Ping(ctx).Err(); err != nil {
		conns.Close()
		return nil, fmt.Errorf("connexion Redis: %w", err)
	}
	log.Println("✅ Connecté à Redis")

	// 3. MongoDB (commandes)
	conns.Mongo, err = mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err == nil {
		err = conns.Mongo.Ping(ctx, nil)
	}
	if err != nil {
		conns.Close()
		return nil, fmt.Errorf("connexion MongoDB: %w", err)
	}
	conns.MongoDB = conns.Mongo.Database(cfg.MongoDB)
	log.Println("✅ Connecté à MongoDB :", cfg.MongoDB)

	// 4. Elasticsearch
	if conns.Elastic, err = connectElastic(cfg); err != nil {
		conns.Close()
		return nil, err
	}

	// 5. MinIO
	if conns.MinIO, err = connectMinIO(ctx, cfg); err != nil {
		conns.Close()
		return nil, err
	}

	log.Println("✅ Toutes les bases de données sont connectées")
	return conns, nil
}

// Close ferme ce qui a été ouvert
func (c *Connections) Close() {
	if c.Users != nil {
		c.Users.Close()
	}
	if c.Products != nil {
		c.Products.Close()
	}
	if c.Redis != nil {
		c.Redis.Close()
	}
	if c.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Mongo.Disconnect(ctx)
	}
	log.Println("🔌 Connexions fermées")
}

// =============================================
// SCYLLA DB
// =============================================

func scyllaCluster(cfg *config.Config, keyspace string) (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(cfg.ScyllaHosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 20
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	if cfg.ScyllaUsername != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.ScyllaUsername,
			Password: cfg.ScyllaPassword,
		}
	}

	if cfg.ScyllaCACertPath != "" {
		caCert, err := os.ReadFile(cfg.ScyllaCACertPath)
		if err != nil {
			return nil, fmt.Errorf("impossible de lire le certificat CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("impossible de parser le certificat CA")
		}
		cluster.SslOpts = &gocql.SslOptions{Config: &tls.Config{RootCAs: pool}}
	}
	return cluster, nil
}

func scyllaSession(cfg *config.Config, keyspace string) (*gocql.Session, error) {
	cluster, err := scyllaCluster(cfg, keyspace)
	if err != nil {
		return nil, fmt.Errorf("configuration cluster pour %s: %w", keyspace, err)
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("création session pour %s: %w", keyspace, err)
	}
	log.Printf("✅ Session ScyllaDB ouverte pour le keyspace '%s'", keyspace)
	return session, nil
}

// =============================================
// ELASTICSEARCH
// =============================================

func connectElastic(cfg *config.Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("connexion Elasticsearch: %s", res.Status())
	}

	log.Println("✅ Connecté à Elasticsearch")
	return client, nil
}

// =============================================
// MINIO
// =============================================

func connectMinIO(ctx context.Context, cfg *config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("client MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, fmt.Errorf("vérification bucket MinIO: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIOBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("création bucket MinIO: %w", err)
		}
		log.Println("🪣 Bucket créé :", cfg.MinIOBucket)
	} else {
		log.Println("🪣 Bucket MinIO déjà présent :", cfg.MinIOBucket)
	}

	log.Println("✅ Connecté à MinIO :", cfg.MinIOEndpoint)
	return client, nil
}
