// Package cli contains the boardlens command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

// Flags.
const (
	generalFlagConfig = "config"
	generalFlagDebug  = "debug"

	decodeFlagTensor     = "tensor"
	decodeFlagThreshold  = "threshold"
	decodeFlagNormalized = "normalized"
	decodeFlagModelSize  = "model-size"

	preprocessFlagImage    = "image"
	preprocessFlagRotation = "rotation"
	preprocessFlagSize     = "size"

	geofenceFlagLat    = "lat"
	geofenceFlagLon    = "lon"
	geofenceFlagVerify = "verify"

	selectionFlagSubject = "subject"
	selectionFlagBranch  = "branch"
	selectionFlagTerm    = "term"

	zoneFlagName       = "name"
	zoneFlagCoordinate = "coordinate"
	zoneFlagRadius     = "radius"

	outputFlagOut = "out"
)

func configFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     generalFlagConfig,
		Aliases:  []string{"c"},
		Required: required,
		Usage:    "load configuration from `FILE`",
	}
}

func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: selectionFlagSubject, Required: true, Usage: "subject code or name"},
		&cli.StringFlag{Name: selectionFlagBranch, Required: true, Usage: "branch, e.g. CSE"},
		&cli.StringFlag{Name: selectionFlagTerm, Required: true, Usage: "semester, e.g. S3"},
	}
}

func positionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: geofenceFlagLat, Required: true, Usage: "latitude in degrees"},
		&cli.Float64Flag{Name: geofenceFlagLon, Required: true, Usage: "longitude in degrees"},
	}
}

// NewApp returns the boardlens app writing command output to out and errors to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "boardlens",
		Usage:           "detect boards, check campus access and fetch subject content",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "decode",
				Usage:     "find the board in a recorded detector output",
				UsageText: "boardlens decode --tensor <file> [other options]",
				Flags: []cli.Flag{
					configFlag(false),
					&cli.StringFlag{Name: decodeFlagTensor, Required: true, Usage: "detector output tensor `FILE` (JSON)"},
					&cli.Float64Flag{Name: decodeFlagThreshold, Usage: "confidence threshold, overrides config"},
					&cli.BoolFlag{Name: decodeFlagNormalized, Usage: "box centers are already normalized"},
					&cli.IntFlag{Name: decodeFlagModelSize, Usage: "model input size in pixels, overrides config"},
				},
				Action: DecodeAction,
			},
			{
				Name:  "preprocess",
				Usage: "convert an image into a model input tensor",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: preprocessFlagImage, Required: true, Usage: "image `FILE`"},
					&cli.IntFlag{Name: preprocessFlagRotation, Usage: "clockwise camera rotation in degrees"},
					&cli.IntFlag{Name: preprocessFlagSize, Value: 640, Usage: "model input size in pixels"},
					&cli.StringFlag{Name: outputFlagOut, Required: true, Usage: "tensor output `FILE`"},
				},
				Action: PreprocessAction,
			},
			{
				Name:  "geofence",
				Usage: "check whether a position is inside an authorized campus",
				Flags: append([]cli.Flag{
					configFlag(true),
					&cli.BoolFlag{Name: geofenceFlagVerify, Usage: "also ask the verification server"},
				}, positionFlags()...),
				Action: GeofenceAction,
			},
			{
				Name:            "zones",
				Usage:           "work with the campus directory",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list configured and directory zones",
						Flags:  []cli.Flag{configFlag(true)},
						Action: ListZonesAction,
					},
					{
						Name:  "add",
						Usage: "add a campus to the directory",
						Flags: []cli.Flag{
							configFlag(true),
							&cli.StringFlag{Name: zoneFlagName, Required: true, Usage: "campus name"},
							&cli.StringFlag{Name: zoneFlagCoordinate, Required: true, Usage: "center as \"lat,lon\""},
							&cli.Float64Flag{Name: zoneFlagRadius, Usage: "radius in meters"},
						},
						Action: AddZoneAction,
					},
				},
			},
			{
				Name:  "resolve",
				Usage: "look up and download the content for a subject",
				Flags: append([]cli.Flag{
					configFlag(true),
					&cli.StringFlag{Name: outputFlagOut, Usage: "write the model to `FILE`"},
				}, selectionFlags()...),
				Action: ResolveAction,
			},
			{
				Name:  "subjects",
				Usage: "list branches, terms or subjects of the syllabus",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: selectionFlagBranch, Usage: "branch, e.g. CSE"},
					&cli.StringFlag{Name: selectionFlagTerm, Usage: "semester, e.g. S3"},
				},
				Action: SubjectsAction,
			},
			{
				Name:      "scan",
				Usage:     "run one full scan against an image and a recorded detector output",
				UsageText: "boardlens scan --config <file> --image <file> --tensor <file> [other options]",
				Flags: append(append([]cli.Flag{
					configFlag(true),
					&cli.StringFlag{Name: preprocessFlagImage, Required: true, Usage: "camera frame `FILE`"},
					&cli.StringFlag{Name: decodeFlagTensor, Required: true, Usage: "detector output tensor `FILE` (JSON)"},
					&cli.StringFlag{Name: outputFlagOut, Usage: "write the placed model to `FILE`"},
				}, selectionFlags()...), positionFlags()...),
				Action: ScanAction,
			},
		},
	}
}
