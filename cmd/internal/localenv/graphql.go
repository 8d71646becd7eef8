package localenv

import (
	"bytes"
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const codegenProject = "Codegen Project"

type graphQLConfig struct {
	Projects map[string]graphQLProject `yaml:"projects"`
}

type graphQLProject struct {
	SchemaPath string            `yaml:"schemaPath"`
	Includes   []string          `yaml:"includes"`
	Extensions graphQLExtensions `yaml:"extensions"`
}

type graphQLExtensions struct {
	Amplify amplifyCodegen `yaml:"amplify"`
}

type amplifyCodegen struct {
	CodeGenTarget     string `yaml:"codeGenTarget"`
	GeneratedFileName string `yaml:"generatedFileName"`
	DocsFilePath      string `yaml:"docsFilePath"`
	Region            string `yaml:"region"`
	APIID             string `yaml:"apiId"`
	Frontend          string `yaml:"frontend"`
	Framework         string `yaml:"framework"`
	MaxDepth          int    `yaml:"maxDepth"`
}

func defaultGraphQLConfig(apiID, region string) graphQLConfig {
	return graphQLConfig{Projects: map[string]graphQLProject{
		codegenProject: {
			SchemaPath: "schema.json",
			Includes:   []string{"src/common/graphql/**/*.ts"},
			Extensions: graphQLExtensions{Amplify: amplifyCodegen{
				CodeGenTarget:     "typescript",
				GeneratedFileName: "src/common/graphql/types.ts",
				DocsFilePath:      "src/common/graphql",
				Region:            region,
				APIID:             apiID,
				Frontend:          "javascript",
				Framework:         "react",
				MaxDepth:          2,
			}},
		},
	}}
}

// UpdateGraphQLConfig points the codegen config at path to apiID in region.
// An existing file keeps everything else it contains; a missing one is
// created with the conventional defaults.
func UpdateGraphQLConfig(path, apiID, region string) (created bool, err error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		created = true
	case err != nil:
		return false, errors.Wrapf(err, "reading %s", path)
	}

	var out []byte
	if created || len(bytes.TrimSpace(data)) == 0 {
		out, err = yaml.Marshal(defaultGraphQLConfig(apiID, region))
	} else {
		out, err = mergeGraphQLConfig(data, apiID, region)
	}
	if err != nil {
		return false, errors.Wrapf(err, "in %s", path)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return false, errors.Wrapf(err, "writing %s", path)
	}
	return created, nil
}

func mergeGraphQLConfig(data []byte, apiID, region string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing GraphQL config")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("invalid YAML document")
	}

	node := doc.Content[0]
	for _, key := range []string{"projects", codegenProject, "extensions", "amplify"} {
		next, err := ensureMapping(node, key)
		if err != nil {
			return nil, err
		}
		node = next
	}
	if err := setScalar(node, "apiId", apiID); err != nil {
		return nil, err
	}
	if err := setScalar(node, "region", region); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, errors.Wrap(err, "marshaling GraphQL config")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "marshaling GraphQL config")
	}
	return buf.Bytes(), nil
}

// ensureMapping returns the mapping stored under key, adding an empty one
// when the key is absent or null.
func ensureMapping(node *yaml.Node, key string) (*yaml.Node, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errors.Newf("expected mapping node for key %q", key)
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		if node.Content[i].Value != key {
			continue
		}
		val := node.Content[i+1]
		if val.Kind == yaml.ScalarNode && val.Tag == "!!null" {
			*val = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		}
		if val.Kind != yaml.MappingNode {
			return nil, errors.Newf("key %q is not a mapping", key)
		}
		return val, nil
	}

	val := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		val,
	)
	return val, nil
}

func setScalar(node *yaml.Node, key, value string) error {
	for i := 0; i < len(node.Content)-1; i += 2 {
		if node.Content[i].Value != key {
			continue
		}
		val := node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return errors.Newf("key %q is not a scalar", key)
		}
		val.Tag = "!!str"
		val.Value = value
		return nil
	}
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
	return nil
}
