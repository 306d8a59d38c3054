package util

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/jxskiss/base62"
	"github.com/pkg/errors"
)

type UniqueIDGenerate struct {
	snowflakeNode *snowflake.Node
}

var (
	singletonUniqueIDGenerate     *UniqueIDGenerate
	singletonUniqueIDGenerateErr  error
	singletonUniqueIDGenerateOnce sync.Once
)

// GetUniqueIDGenerate returns the process wide generator. Node id comes from SNOWFLAKE_NODE_ID.
func GetUniqueIDGenerate() (*UniqueIDGenerate, error) {
	singletonUniqueIDGenerateOnce.Do(func() {
		snowflakeNode, err := snowflake.NewNode(GetEnvInt64("SNOWFLAKE_NODE_ID", 1))
		if err != nil {
			singletonUniqueIDGenerateErr = errors.Wrap(err, "create snowflake failed")
			return
		}
		singletonUniqueIDGenerate = &UniqueIDGenerate{
			snowflakeNode: snowflakeNode,
		}
	})
	return singletonUniqueIDGenerate, singletonUniqueIDGenerateErr
}

func (u UniqueIDGenerate) Generate() *UniqueID {
	return &UniqueID{
		snowflakeID: u.snowflakeNode.Generate(),
	}
}

type UniqueID struct {
	snowflakeID snowflake.ID
}

func (u UniqueID) GetInt64() int64 {
	return u.snowflakeID.Int64()
}

func (u UniqueID) GetBase62() string {
	return string(base62.FormatInt(u.snowflakeID.Int64()))
}
