package di

import (
	"os"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sfn"

	"github.com/aswathsr101/djl-publisher/internal/dao/rundao"
	apperrors "github.com/aswathsr101/djl-publisher/internal/errors"
	"github.com/aswathsr101/djl-publisher/internal/trigger"
)

func ProvideRunDAO(env string, client *dynamodb.Client) *rundao.DAO {
	return rundao.New(client, rundao.TableName(env))
}

// ProvideStarter builds the Step Functions starter used by the trigger
// lambdas. The state machine ARN comes from the environment because the
// trigger deployment owns it, not the config file.
func ProvideStarter(sfnClient *sfn.Client, dao *rundao.DAO) (*trigger.Starter, error) {
	arn := os.Getenv("STATE_MACHINE_ARN")
	if arn == "" {
		return nil, apperrors.ErrStateMachineARNRequired
	}
	return trigger.New(sfnClient, arn, dao), nil
}
