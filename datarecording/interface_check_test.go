package datarecording

var _ DataRecorder = (*clickHouseRecorder)(nil)
var _ DataRecorder = (*sqliteWriter)(nil)
