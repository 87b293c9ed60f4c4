package exporter

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/host-exporters/pkg/util"
)

func initServerFlags(root *cobra.Command) {
	f := root.Flags()

	f.Duration("server.read-timeout", defaultCfg.Server.ReadTimeout, "-> Per connection receive timeout, 0 disables (读取超时时间)")
	f.Duration("server.write-timeout", defaultCfg.Server.WriteTimeout, "-> Per connection send timeout, 0 disables (写入超时时间)")

	f.String("path.procfs", defaultCfg.Path.Procfs, "-> procfs mount point (procfs挂载点)")
	f.String("path.sysfs", defaultCfg.Path.Sysfs, "-> sysfs mount point (sysfs挂载点)")

	f.Bool("banner", defaultCfg.Banner, "-> Print a banner to stderr on startup (启动时打印banner)")
	f.String("banner-color", defaultCfg.BannerColor,
		"-> Banner color: "+strings.Join(util.BannerColors(), ", ")+" (banner颜色)")
}
