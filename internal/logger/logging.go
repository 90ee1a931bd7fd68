package logger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var (
	globalLogFileHandle     *os.File
	globalBufferedLogWriter *bufio.Writer
	globalLogMessageQueue   chan string
	isLoggerInitialized     atomic.Bool
	minimumSeverityLevel    atomic.Int32
	baseLogDirectoryPath    string
	loggerMutex             sync.Mutex
	shutdownSignalChannel   chan struct{}
	backgroundWaitGroup     sync.WaitGroup
)

const (
	SeverityDebug             = 0
	SeverityInfo              = 1
	SeverityWarn              = 2
	SeverityError             = 3
	MaximumLogFileSizeInBytes = 10 * 1024 * 1024 // 10 Megabytes
	logFileName               = "system.log"
)

func InitializeLogger(directoryPath string, levelString string) error {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if isLoggerInitialized.Load() {
		closeAndFlushLoggerInternal()
	}

	baseLogDirectoryPath = directoryPath
	if err := os.MkdirAll(directoryPath, 0755); err != nil {
		return errors.Wrap(err, "failed to create log directory")
	}

	if err := openLogFileInternal(); err != nil {
		return errors.Wrap(err, "failed to open log file")
	}

	globalLogMessageQueue = make(chan string, 10000)
	shutdownSignalChannel = make(chan struct{})

	minimumSeverityLevel.Store(ParseSeverityLevel(levelString))

	isLoggerInitialized.Store(true)
	backgroundWaitGroup.Add(1)
	go processLogQueueInBackground()

	return nil
}

// ParseSeverityLevel maps a level name to its severity, defaulting to INFO.
func ParseSeverityLevel(levelString string) int32 {
	switch strings.ToUpper(strings.TrimSpace(levelString)) {
	case "DEBUG":
		return SeverityDebug
	case "INFO":
		return SeverityInfo
	case "WARN", "WARNING":
		return SeverityWarn
	case "ERROR":
		return SeverityError
	default:
		return SeverityInfo
	}
}

func ShutdownLogger() {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	closeAndFlushLoggerInternal()
}

func closeAndFlushLoggerInternal() {
	if !isLoggerInitialized.Load() {
		return
	}

	close(shutdownSignalChannel)
	loggerMutex.Unlock()
	backgroundWaitGroup.Wait()
	loggerMutex.Lock()

	if globalBufferedLogWriter != nil {
		globalBufferedLogWriter.Flush()
	}
	if globalLogFileHandle != nil {
		globalLogFileHandle.Close()
	}

	isLoggerInitialized.Store(false)
}

func openLogFileInternal() error {
	filePath := filepath.Join(baseLogDirectoryPath, logFileName)
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	globalLogFileHandle = file
	globalBufferedLogWriter = bufio.NewWriter(file)
	return nil
}

func IsLoggerInitialized() bool {
	return isLoggerInitialized.Load()
}

func processLogQueueInBackground() {
	defer backgroundWaitGroup.Done()
	flushTicker := time.NewTicker(500 * time.Millisecond)
	defer flushTicker.Stop()

	bytesWrittenSinceLastCheck := int64(0)
	consoleOutput := os.Stdout

	for {
		select {
		case message := <-globalLogMessageQueue:
			if globalBufferedLogWriter != nil {
				bytesWritten, _ := globalBufferedLogWriter.WriteString(message + "\n")
				bytesWrittenSinceLastCheck += int64(bytesWritten)
			}
			fmt.Fprintln(consoleOutput, message)

			if bytesWrittenSinceLastCheck > 1024*10 {
				CheckAndRotateLogFile()
				bytesWrittenSinceLastCheck = 0
			}
		case <-flushTicker.C:
			loggerMutex.Lock()
			if globalBufferedLogWriter != nil {
				globalBufferedLogWriter.Flush()
			}
			loggerMutex.Unlock()
		case <-shutdownSignalChannel:
			for {
				select {
				case message := <-globalLogMessageQueue:
					if globalBufferedLogWriter != nil {
						globalBufferedLogWriter.WriteString(message + "\n")
					}
					fmt.Fprintln(consoleOutput, message)
				default:
					return
				}
			}
		}
	}
}

func CheckAndRotateLogFile() {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if globalLogFileHandle == nil {
		return
	}

	fileInfo, err := globalLogFileHandle.Stat()
	if err == nil && fileInfo.Size() > MaximumLogFileSizeInBytes {
		globalBufferedLogWriter.Flush()
		globalLogFileHandle.Close()

		oldFilePath := filepath.Join(baseLogDirectoryPath, logFileName)
		newFilePath := oldFilePath + "." + fmt.Sprint(time.Now().UnixNano())
		os.Rename(oldFilePath, newFilePath)

		openLogFileInternal()
	}
}

func tryQueueLogMessage(prefix string, format string, args ...interface{}) {
	if !isLoggerInitialized.Load() {
		return
	}

	timestamp := time.Now().Format("2006/01/02 15:04:05")
	formattedMessage := fmt.Sprintf("%s %s "+format, append([]interface{}{timestamp, prefix}, args...)...)

	select {
	case globalLogMessageQueue <- formattedMessage:
	default:
		// Queue full, drop message to prevent deadlock
	}
}

func LogAccessEvent(format string, args ...interface{}) {
	tryQueueLogMessage("[ACC]", format, args...)
}

func LogInfoEvent(format string, args ...interface{}) {
	if minimumSeverityLevel.Load() <= SeverityInfo {
		tryQueueLogMessage("[INF]", format, args...)
	}
}

func LogWarnEvent(format string, args ...interface{}) {
	if minimumSeverityLevel.Load() <= SeverityWarn {
		tryQueueLogMessage("[WRN]", format, args...)
	}
}

func LogErrorEvent(format string, args ...interface{}) {
	if minimumSeverityLevel.Load() <= SeverityError {
		tryQueueLogMessage("[ERR]", format, args...)
	}
}

func LogDebugEvent(format string, args ...interface{}) {
	if minimumSeverityLevel.Load() <= SeverityDebug {
		tryQueueLogMessage("[DBG]", format, args...)
	}
}
