package conda

import "github.com/djcass44/bake-your-own/pkg/channel"

type PackageKeeper struct {
	indices []*channel.Index
}
