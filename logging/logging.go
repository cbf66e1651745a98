package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the standard logger to write to stdout and, when logFile is set,
// to a size-rotated file. The returned closer flushes the file and is never nil.
func Setup(logFile string) io.Closer {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if logFile == "" {
		log.SetOutput(os.Stdout)
		return io.NopCloser(nil)
	}

	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return rotator
}
