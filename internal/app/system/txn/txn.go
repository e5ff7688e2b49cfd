// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// notReplicaSet is the server's message when a standalone mongod is asked
// to run a transaction.
const notReplicaSet = "Transaction numbers are only allowed on a replica set member or mongos"

// IsNotSupported reports whether err means the deployment cannot run
// multi-document transactions (standalone server, some DocumentDB setups).
// Other transaction failures, such as an abort or an unknown commit result,
// are not matched and must not be replayed outside a transaction.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 263: // IllegalOperation, OperationNotSupportedInTransaction
			return true
		}
	}
	return strings.Contains(err.Error(), notReplicaSet)
}

// Run executes fn in a transaction on client. When the deployment rejects
// transactions, fn is retried once without one, so its writes must be
// safe to apply sequentially. A nil client runs fn directly.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context) error) error {
	if client == nil {
		return fn(ctx)
	}

	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		if log != nil {
			log.Debug("transactions unsupported; running writes sequentially", zap.Error(err))
		}
		return fn(ctx)
	}
	return err
}
