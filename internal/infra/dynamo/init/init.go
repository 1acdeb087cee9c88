package infra_dynamo_init

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/humanbelnik/gamenight/internal/config"
)

// MustEstablishConn builds a client from the default credential chain.
// A non-empty endpoint points it at DynamoDB Local or another emulator.
func MustEstablishConn(ctx context.Context, cfg config.Dynamo) *dynamodb.Client {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		log.Fatal("load aws config: ", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
}
