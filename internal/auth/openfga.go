package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/openfga/go-sdk/client"
	"github.com/openfga/go-sdk/credentials"
)

// RoleRelation 角色成员关系: user:<id> member role:<name>
const (
	RoleObjectType = "role"
	RoleRelation   = "member"
)

// OpenFGAClient OpenFGA 客户端
type OpenFGAClient struct {
	client  *client.OpenFgaClient
	storeID string
	modelID string
}

// NewOpenFGAClient 创建 OpenFGA 客户端
func NewOpenFGAClient(apiURL string, storeID string, modelID string) (*OpenFGAClient, error) {
	configuration := client.ClientConfiguration{
		ApiUrl:  apiURL,
		StoreId: storeID,
		Credentials: &credentials.Credentials{
			Method: credentials.CredentialsMethodNone,
		},
	}
	if modelID != "" {
		configuration.AuthorizationModelId = modelID
	}

	fgaClient, err := client.NewSdkClient(&configuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenFGA client: %w", err)
	}

	return &OpenFGAClient{
		client:  fgaClient,
		storeID: storeID,
		modelID: modelID,
	}, nil
}

// CheckPermission 检查关系是否存在
func (c *OpenFGAClient) CheckPermission(ctx context.Context, userID, relation, objectType, objectID string) (bool, error) {
	body := client.ClientCheckRequest{
		User:     fmt.Sprintf("user:%s", userID),
		Relation: relation,
		Object:   fmt.Sprintf("%s:%s", objectType, objectID),
	}

	response, err := c.client.Check(ctx).Body(body).Execute()
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}

	return response.GetAllowed(), nil
}

// GrantRole 把用户加入角色
func (c *OpenFGAClient) GrantRole(ctx context.Context, userID, role string) error {
	body := client.ClientWriteRequest{
		Writes: []client.ClientTupleKey{
			{
				User:     fmt.Sprintf("user:%s", userID),
				Relation: RoleRelation,
				Object:   fmt.Sprintf("%s:%s", RoleObjectType, role),
			},
		},
	}

	if _, err := c.client.Write(ctx).Body(body).Execute(); err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	return nil
}

// RevokeRole 把用户移出角色
func (c *OpenFGAClient) RevokeRole(ctx context.Context, userID, role string) error {
	body := client.ClientWriteRequest{
		Deletes: []client.ClientTupleKeyWithoutCondition{
			{
				User:     fmt.Sprintf("user:%s", userID),
				Relation: RoleRelation,
				Object:   fmt.Sprintf("%s:%s", RoleObjectType, role),
			},
		},
	}

	if _, err := c.client.Write(ctx).Body(body).Execute(); err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	return nil
}

// CheckHealth 检查 OpenFGA 连接健康状态
func (c *OpenFGAClient) CheckHealth(ctx context.Context) bool {
	if c == nil || c.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.Read(ctx).Execute()
	return err == nil
}

// NewOpenFGAClientWithRetry 带重试的 OpenFGA 客户端创建,重试间隔指数退避
func NewOpenFGAClientWithRetry(apiURL, storeID, modelID string, maxRetries int, retryInterval time.Duration) (*OpenFGAClient, error) {
	var fgaClient *OpenFGAClient
	var err error

	for i := 0; i < maxRetries; i++ {
		fgaClient, err = NewOpenFGAClient(apiURL, storeID, modelID)
		if err == nil {
			if fgaClient.CheckHealth(context.Background()) {
				return fgaClient, nil
			}
			err = fmt.Errorf("OpenFGA at %s is not reachable", apiURL)
		}

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}

	return nil, fmt.Errorf("failed to create OpenFGA client after %d retries: %w", maxRetries, err)
}

// RelationChecker 关系检查
type RelationChecker interface {
	CheckPermission(ctx context.Context, userID, relation, objectType, objectID string) (bool, error)
}

// OpenFGARoleResolver 通过 OpenFGA 解析角色
// OpenFGA 只能回答 "是否属于某角色",因此只检查候选角色
type OpenFGARoleResolver struct {
	checker    RelationChecker
	candidates []string
}

// NewOpenFGARoleResolver 创建 OpenFGA 角色解析器
func NewOpenFGARoleResolver(checker RelationChecker, candidates []string) *OpenFGARoleResolver {
	return &OpenFGARoleResolver{checker: checker, candidates: candidates}
}

// ResolveRoles 返回用户拥有的候选角色
func (r *OpenFGARoleResolver) ResolveRoles(ctx context.Context, userID string) ([]string, error) {
	var roles []string
	for _, role := range r.candidates {
		ok, err := r.checker.CheckPermission(ctx, userID, RoleRelation, RoleObjectType, role)
		if err != nil {
			return nil, err
		}
		if ok {
			roles = append(roles, role)
		}
	}
	return roles, nil
}
