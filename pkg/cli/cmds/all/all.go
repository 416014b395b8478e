// Package all registers every shell command package.
package all

import (
	_ "github.com/robotalks/multilink/pkg/cli/cmds/boot"
	_ "github.com/robotalks/multilink/pkg/cli/cmds/link"
)
