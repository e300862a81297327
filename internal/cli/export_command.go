package cli

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"yt-tutor-console/internal/config"
	"yt-tutor-console/internal/store"
	"yt-tutor-console/internal/video"
)

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	videoFlag := fs.String("video", "", "video URL or ID (default: last opened session)")
	outFlag := fs.String("out", ".", "output directory")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Load()
	st, err := store.Open(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer st.Close()

	videoID := strings.TrimSpace(*videoFlag)
	if videoID != "" {
		id, err := video.ExtractID(videoID)
		if err != nil {
			return err
		}
		videoID = id
	} else {
		sess, ok, err := st.LoadSession()
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("no saved session; pass --video")
		}
		videoID = sess.VideoID
	}

	exported := 0
	if body, ok, err := st.LoadTranscript(videoID); err != nil {
		return err
	} else if ok {
		path := filepath.Join(*outFlag, videoID+"-transcript.md")
		if err := store.ExportTranscript(path, body); err != nil {
			return err
		}
		fmt.Println("wrote", path)
		exported++
	}
	if msgs, ok, err := st.LoadChatLog(videoID); err != nil {
		return err
	} else if ok && len(msgs) > 0 {
		path := filepath.Join(*outFlag, videoID+"-chat.json")
		if err := store.ExportChatLog(path, msgs); err != nil {
			return err
		}
		fmt.Println("wrote", path)
		exported++
	}

	if exported == 0 {
		return fmt.Errorf("nothing cached for video %s", videoID)
	}
	return nil
}
