package worker

import (
	"os"
	"os/signal"
	"syscall"
)

func notifyTerminate(ch chan os.Signal) {
	signal.Notify(ch, syscall.SIGTERM)
}

func stopNotify(ch chan os.Signal) {
	signal.Stop(ch)
}
