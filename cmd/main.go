package main

import (
	"context"
	"flag"
	"log"

	"github.com/StatusSSS/CopyParser/config"
	"github.com/StatusSSS/CopyParser/core/alikafka"
	"github.com/StatusSSS/CopyParser/core/pipeline"
	"github.com/StatusSSS/CopyParser/core/redis"
	"github.com/StatusSSS/CopyParser/core/smartmoney"
	"github.com/StatusSSS/CopyParser/utils/logger"
)

func main() {
	configPath := flag.String("config_path", "./", "config file")
	logicLogFile := flag.String("logic_log_file", "./log/copy_parser.log", "logic log file")
	hours := flag.Int("hours", 0, "trending max pair age in hours, 0 uses config")
	keepInterim := flag.Bool("keep_interim", false, "keep raw and interim run artifacts")
	exportRockets := flag.String("export_rockets", "", "export rocket wallets to the given file and exit")
	flag.Parse()

	//init logic logger
	logger.Init(*logicLogFile)

	//set log level
	logger.SetLogLevel("debug")

	err := config.LoadConf(*configPath)
	if err != nil {
		log.Fatal("load config failed:", err)
	}

	err = redis.InitRedis()
	if err != nil {
		log.Fatal("init redis failed:", err)
	}

	if *exportRockets != "" {
		n, err := smartmoney.ExportRockets(context.Background(), &smartmoney.BunWalletStore{}, config.GetScanConfig().MinRockets, *exportRockets)
		if err != nil {
			log.Fatal("export rockets failed:", err)
		}
		log.Printf("exported %d rocket wallets to %s", n, *exportRockets)
		return
	}

	if config.GetKafkaConfig().Enabled {
		if err := alikafka.InitKafka(); err != nil {
			log.Fatal("init kafka failed:", err)
		}
	}

	maxAge := *hours
	if maxAge <= 0 {
		maxAge = config.GetScanConfig().MaxAgeHours
	}

	// per-item failures are quarantined inside the run; only a broken run
	// workspace is fatal
	res, err := pipeline.Run(pipeline.RunOptions{Hours: maxAge, KeepInterim: *keepInterim})
	if err != nil {
		log.Fatal("pipeline run failed:", err)
	}

	log.Printf("run %s done: tokens=%d merged=%d unique=%d admitted=%d classified=%d quarantined=%d",
		res.RunID, res.Tokens, res.Merged, res.Unique, res.Admitted, res.Classified, res.Quarantined)
}
