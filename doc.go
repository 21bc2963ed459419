// Package feedprep reshapes per-application identity exports into
// normalized, upload-ready CSV files.
//
// Every application folder below a configured root holds a config.json and
// one or more exports (CSV, TXT, XLSX, or XLS converted on the fly). Each
// run picks the newest export of every folder and pushes it through a
// fixed sequence of stages, independently per folder.
//
// # Stages
//
//   - SelectInputFile chooses the newest supported file in the folder
//   - ImportFile reads it into a model.RowSet
//   - ArchiveOriginal copies the export into <folder>/Archive
//   - Shape trims rows and columns, merges and drops columns
//   - CollapseFlags folds boolean flag columns into a Role column
//   - Expand fans rows out into one row per entitlement and derives IIQDisabled
//   - WriteCSV writes the Processed snapshot and the upload snapshot
//   - MoveIntoArchive moves the Processed snapshot into the archive
//   - Uploader hands the upload snapshot to the identity platform
//   - Sweep deletes archived files and logs past the retention window
//
// # Basic Usage
//
//	settings, err := model.LoadSettings("settings.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger, closeLog, err := feedprep.NewExecutionLogger(settings.LogDir, time.Now().Format(feedprep.DateLayout), false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer closeLog()
//
//	pipeline := feedprep.NewPipeline(settings, logger)
//	summary := feedprep.NewRunner(settings, pipeline, logger).Run(ctx)
//	fmt.Println(summary.String())
//
// # Error Handling
//
// Stage failures wrap one of the sentinel errors (ErrConfig, ErrNoInputFile,
// ErrImport, ErrExport, ErrUpload, ErrRetention) so callers can classify
// them with errors.Is. Configuration, selection and import failures skip a
// folder; export failures mark it as errored; upload and retention failures
// are logged and never stop archival. Out-of-range trim counts and missing
// merge or drop targets are logged as warnings, never returned as errors.
//
// # Artifacts
//
// Artifacts carry a yyyy_MM_dd_HH.mm timestamp (layout 2006_01_02_15.04):
//
//	<folder>/Archive/Original_<ts>.<ext>[.gz|.xz|.zst]
//	<folder>/Archive/Processed_<ts>.csv[.gz|.xz|.zst]
//	<folder>/Archive/<sourceID>_upload_file_<ts>.csv
//	<folder>/Archive/<sourceID>_upload_file_<ts>.parquet|.xlsx  (auditFormat)
//	<folder>/Logs/<folder>_<yyyy_MM_dd>.log
//
// Existing files are never overwritten; a numeric suffix is added instead.
package feedprep
