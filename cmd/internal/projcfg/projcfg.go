package projcfg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	configDir  = "config"
	configFile = "project-config.json"

	frontendDeployment = "frontendDeployment"
)

// Preset stages. Any other key under "accounts" is a sandbox stage.
const (
	StageDev  = "dev"
	StageProd = "prod"
)

var (
	ErrMissing           = errors.New("missing project configuration file")
	ErrMalformed         = errors.New("malformed project configuration file")
	ErrMissingDevAccount = errors.New("missing dev account in configuration file")
)

type AccountConfig struct {
	Number         string `json:"number" validate:"len=12,number"`
	Region         string `json:"region"`
	MidwaySecretID string `json:"midwaySecretId,omitempty"`
}

type Config struct {
	Path string `json:"-"`
	Root string `json:"-"`

	ProjectID     string                   `json:"projectId" validate:"min=5,max=15,projectid"`
	CodeArtifact  *bool                    `json:"codeArtifact" validate:"required"`
	Midway        *bool                    `json:"midway" validate:"required"`
	CodePipeline  *bool                    `json:"codePipeline" validate:"required"`
	GitlabGroup   string                   `json:"gitlabGroup,omitempty" validate:"omitempty,min=5,max=75"`
	GitlabProject string                   `json:"gitlabProject,omitempty" validate:"omitempty,min=5,max=75"`
	Accounts      map[string]AccountConfig `json:"accounts" validate:"required,dive"`

	stages []string
}

// Load reads and validates the project configuration. An empty path means
// config/project-config.json in the working directory or one of its parents.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "reading %s", abs), ErrMissing)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", abs)
	}

	cfg.Path = abs
	cfg.Root = rootFor(abs)
	return cfg, nil
}

// Parse decodes and validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parsing JSON"), ErrMalformed)
	}

	stages, err := accountOrder(data)
	if err != nil {
		return nil, errors.Mark(err, ErrMalformed)
	}
	cfg.stages = stages

	if err := cfg.validate(); err != nil {
		return nil, errors.Mark(err, ErrMalformed)
	}

	// without an explicit stage everything defaults to dev
	if _, ok := cfg.Accounts[StageDev]; !ok {
		return nil, ErrMissingDevAccount
	}
	return &cfg, nil
}

// Stages returns the configured stage names in file order.
func (c *Config) Stages() []string {
	return append([]string(nil), c.stages...)
}

func (c *Config) Account(stage string) (AccountConfig, bool) {
	acct, ok := c.Accounts[stage]
	return acct, ok
}

func (c *Config) UsesMidway() bool       { return c.Midway != nil && *c.Midway }
func (c *Config) UsesCodePipeline() bool { return c.CodePipeline != nil && *c.CodePipeline }

func (c *Config) FrontendDir() string {
	return filepath.Join(c.Root, "src", "frontend")
}

// ProfileName is the AWS CLI profile used for a stage.
func (c *Config) ProfileName(stage string) string {
	return c.ProjectID + "-" + stage
}

// StackPrefix is the CDK path prefix shared by all stacks of a stage.
func (c *Config) StackPrefix(stage string) string {
	return stage + "/" + c.ProjectID
}

func (c *Config) PipelineStackName() string {
	return c.ProjectID + "-pipeline"
}

// FrontendStackPath is the CDK path of the frontend deployment stack.
func (c *Config) FrontendStackPath(stage string) string {
	return c.StackPrefix(stage) + "-" + frontendDeployment
}

// FrontendStackName is the CloudFormation name of the frontend deployment stack.
func (c *Config) FrontendStackName(stage string) string {
	return c.CloudFormationSafeName(stage, frontendDeployment)
}

func (c *Config) CloudFormationSafeName(stage, suffix string) string {
	name := CfnStackName(c.StackPrefix(stage))
	if suffix == "" {
		return name
	}
	return name + "-" + suffix
}

// CfnStackName converts a CDK stack path ("dev/proj") to a name CloudFormation
// accepts ("dev-proj").
func CfnStackName(cdkStackPath string) string {
	return strings.ReplaceAll(cdkStackPath, "/", "-")
}

func IsPresetStage(stage string) bool {
	return stage == StageDev || stage == StageProd
}

func findConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, configDir, configFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Mark(
				errors.Newf("could not find %s in any parent directory", filepath.Join(configDir, configFile)),
				ErrMissing,
			)
		}
		dir = parent
	}
}

func rootFor(path string) string {
	dir := filepath.Dir(path)
	if filepath.Base(dir) == configDir {
		return filepath.Dir(dir)
	}
	return dir
}

func accountOrder(data []byte) ([]string, error) {
	doc, err := decodeOrdered(data)
	if err != nil {
		return nil, errors.Wrap(err, "reading account order")
	}
	accounts := doc.get("accounts")
	if accounts == nil {
		return nil, nil
	}
	if accounts.kind != jsonObject {
		if accounts.kind == jsonScalar && accounts.scalar == nil {
			return nil, nil
		}
		return nil, errors.New("accounts must be an object")
	}
	return accounts.keys(), nil
}
