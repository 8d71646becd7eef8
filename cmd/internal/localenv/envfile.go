package localenv

import (
	"strings"

	"github.com/genailabs/starterkit/cmd/internal/cfnread"
	"github.com/samber/lo"
)

const (
	viteMarker       = "vite-"
	codegenAPISuffix = "codegen-graph-api-id"
)

// EnvFileContents renders the outputs exported for the frontend as
// KEY=value lines. An export "dev-proj-vite-user-pool-id" becomes
// VITE_USER_POOL_ID.
func EnvFileContents(outputs []cfnread.Output) string {
	lines := lo.FilterMap(outputs, func(o cfnread.Output, _ int) (string, bool) {
		i := strings.Index(o.ExportName, viteMarker)
		if i < 0 {
			return "", false
		}
		key := strings.ReplaceAll(strings.ToUpper(o.ExportName[i:]), "-", "_")
		return key + "=" + o.Value, true
	})
	return strings.Join(lines, "\n")
}

// GraphQLAPIID finds the AppSync API id exported for codegen.
func GraphQLAPIID(outputs []cfnread.Output) (string, bool) {
	o, ok := lo.Find(outputs, func(o cfnread.Output) bool {
		return strings.HasSuffix(o.ExportName, codegenAPISuffix)
	})
	return o.Value, ok
}
