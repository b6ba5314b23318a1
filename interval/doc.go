/*Package interval implements interval-union operations over genomic
  coordinates loaded from BED files, such as the assembly-gap track used to
  discard structural-variant calls that touch unsequenced reference.
  Overlapping and touching intervals are merged, not tracked separately.
  It assumes every position fits in a PosType, which is currently defined as
  int32 since that's what BAM files are limited to.
*/
package interval
