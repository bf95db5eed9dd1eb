// Command viking-room renders a spinning textured mesh in an SDL window.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/daniel1414/vulkan-renderer/config"
	"github.com/daniel1414/vulkan-renderer/render"
	"github.com/daniel1414/vulkan-renderer/vulkan"
	"github.com/loov/hrtime"
	"github.com/veandco/go-sdl2/sdl"
)

const statsInterval = 5 * time.Second

func main() {
	runtime.LockOSThread()

	configPath := flag.String("config", "viking-room.toml", "path to the TOML config file")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "viking-room",
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("invalid config", "err", err)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		logger.Fatal("invalid log level", "err", err)
	}
	logger.SetLevel(level)

	err = run(&cfg, logger)
	if err != nil {
		logger.Fatal("renderer stopped", "err", fmt.Sprintf("%+v", err))
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	err := sdl.Init(sdl.INIT_VIDEO)
	if err != nil {
		return err
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow(cfg.Window.Title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		cfg.Window.Width, cfg.Window.Height,
		sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return err
	}
	defer window.Destroy()

	renderer, err := vulkan.New(window, cfg, logger)
	if err != nil {
		return err
	}

	sched, err := render.NewScheduler(renderer.Surface(), renderer, renderer.Recorder(), renderer,
		renderer.SyncFactory(), cfg.Renderer.FramesInFlight)
	if err != nil {
		renderer.Close()
		return err
	}

	defer func() {
		renderer.WaitIdle()
		sched.Ring().Destroy()
		renderer.Close()
	}()

	return loop(window, sched, logger)
}

func loop(window *sdl.Window, sched *render.Scheduler, logger *log.Logger) error {
	rendering := true
	lastReport := hrtime.Now()

appLoop:
	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				break appLoop
			case *sdl.WindowEvent:
				switch e.Event {
				case sdl.WINDOWEVENT_MINIMIZED:
					rendering = false
				case sdl.WINDOWEVENT_RESTORED:
					rendering = true
				case sdl.WINDOWEVENT_RESIZED:
					w, h := window.GetSize()
					if w > 0 && h > 0 {
						rendering = true
						sched.RequestResize()
					} else {
						rendering = false
					}
				}
			}
		}

		if !rendering {
			continue
		}

		err := sched.DrawFrame()
		if err != nil {
			return err
		}

		if now := hrtime.Now(); now-lastReport >= statsInterval {
			stats := sched.Stats()
			logger.Debug("frame stats", "frames", stats.Frames, "rebuilds", stats.Rebuilds, "avg", stats.AvgFrame)
			lastReport = now
		}
	}

	return nil
}
