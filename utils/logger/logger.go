package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Logrus *logrus.Logger

func Init(logfile string) {
	logger := logrus.New()

	logger.SetReportCaller(true)

	logger.SetFormatter(&logrus.JSONFormatter{
		PrettyPrint: true,
	})

	rotated := &lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    200,
		MaxBackups: 30,
		MaxAge:     30,
		Compress:   true,
	}

	// batch runs are usually watched from a terminal, so echo to stderr too
	logger.Out = io.MultiWriter(rotated, os.Stderr)

	logger.SetLevel(logrus.DebugLevel)
	Logrus = logger
}

func SetLogLevel(runMode string) {
	modeLevel := logrus.InfoLevel

	switch runMode {
	case "debug":
		modeLevel = logrus.DebugLevel
	case "fatal":
		modeLevel = logrus.FatalLevel
	case "error":
		modeLevel = logrus.ErrorLevel
	case "warn":
		modeLevel = logrus.WarnLevel
	default:
		modeLevel = logrus.InfoLevel
	}

	Logrus.SetLevel(modeLevel)
}
